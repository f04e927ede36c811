package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// ErrNoMatch indica que el resolver no encontró ningún listing remoto
// para el mercado local. No es un error de infraestructura: el mercado
// queda sin sincronizar hasta que un tick futuro lo consiga.
var ErrNoMatch = errors.New("resolver: no matching remote listing")

// ResolveRequest son los metadatos con los que el resolver busca la
// contrapartida remota de un mercado local.
type ResolveRequest struct {
	Symbol        string
	PeriodMinutes int
	CloseAt       time.Time
	LocalStatus   domain.MarketStatus
	LocalMarketID string
}

// Resolver vincula un mercado local con su listing remoto. La lógica de
// matching vive en la factory, fuera de este core; aquí solo se consume
// el contrato. El resolver puede disparar por su cuenta un resync
// fire-and-forget para el mercado — el synchronizer no lo espera.
type Resolver interface {
	// Resolve devuelve el id del listing remoto o ErrNoMatch.
	Resolve(ctx context.Context, req ResolveRequest) (string, error)
}
