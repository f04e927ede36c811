package ports

import (
	"context"
	"errors"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// ErrNotFound indica que la entidad pedida no existe en storage.
var ErrNotFound = errors.New("storage: not found")

// TemplateStore persiste las plantillas extraídas por el harvester.
type TemplateStore interface {
	// GetTemplateByKey busca por la identidad compuesta (symbol, period, kind).
	// Devuelve ErrNotFound si no existe.
	GetTemplateByKey(ctx context.Context, key domain.TemplateKey) (domain.Template, error)

	// CreateTemplate inserta una plantilla nueva.
	CreateTemplate(ctx context.Context, t domain.Template) error

	// UpdateTemplate actualiza titlePattern/seriesRef/categoryTag de una
	// plantilla existente. Nunca toca symbol/period/kind — son la identidad.
	UpdateTemplate(ctx context.Context, t domain.Template) error

	// ListTemplates devuelve todas las plantillas.
	ListTemplates(ctx context.Context) ([]domain.Template, error)
}

// MarketStore es la vista estrecha sobre los mercados locales que necesita
// el synchronizer: lectura de activos más las dos únicas escrituras que
// este core tiene permitidas (externalId y campos de precio).
type MarketStore interface {
	// ListSyncableMarkets devuelve los mercados con status OPEN cuyo
	// origen es el feed externo o la factory.
	ListSyncableMarkets(ctx context.Context) ([]domain.MarketInstance, error)

	// BindExternalID persiste el id remoto resuelto para un mercado.
	BindExternalID(ctx context.Context, marketID, externalID string) error

	// ApplyPriceUpdate aplica los campos de precio de un SyncJob.
	// Idempotente por marketId: aplicar dos veces el mismo job es inocuo.
	ApplyPriceUpdate(ctx context.Context, job domain.SyncJob) error
}

// RunLedger es el registro de una fila por tarea para observabilidad.
type RunLedger interface {
	// UpsertRunRecord sobreescribe el registro de la tarea.
	UpsertRunRecord(ctx context.Context, rec domain.RunRecord) error

	// GetRunRecord devuelve el último registro de la tarea, o ErrNotFound.
	GetRunRecord(ctx context.Context, taskName string) (domain.RunRecord, error)
}

// Storage agrupa todos los contratos de persistencia del core.
type Storage interface {
	TemplateStore
	MarketStore
	RunLedger

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
