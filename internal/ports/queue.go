package ports

import (
	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// UpdateQueue desacopla el scan del synchronizer de las escrituras a
// storage: Enqueue acepta los jobs sin esperar a que se apliquen, de modo
// que un storage lento no puede atascar el siguiente tick.
type UpdateQueue interface {
	// Enqueue acepta los jobs en el buffer y devuelve cuántos entraron.
	// No bloquea esperando a los workers; si el buffer se llena, los jobs
	// sobrantes se descartan y se devuelve un error junto al conteo.
	Enqueue(jobs []domain.SyncJob) (int, error)

	// BacklogSize devuelve el número de jobs aceptados y aún no aplicados.
	BacklogSize() int

	// Stats devuelve contadores de throughput observacionales.
	Stats() domain.QueueStats
}
