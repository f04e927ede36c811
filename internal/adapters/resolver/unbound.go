package resolver

// unbound.go — resolver nulo para despliegues sin factory conectada.
//
// El algoritmo real de matching vive en la factory, fuera de este core.
// Sin ella, ningún mercado local puede vincularse: los mercados de factory
// sin external_id se quedan en skip tick tras tick, que es exactamente el
// comportamiento esperado del contrato.

import (
	"context"

	"github.com/Jock20242024/yesno-sub001/internal/ports"
)

// Unbound implementa ports.Resolver devolviendo siempre ErrNoMatch.
type Unbound struct{}

// NewUnbound crea el resolver nulo.
func NewUnbound() *Unbound {
	return &Unbound{}
}

// Resolve nunca encuentra contrapartida.
func (Unbound) Resolve(ctx context.Context, req ports.ResolveRequest) (string, error) {
	return "", ports.ErrNoMatch
}
