package queue

// queue.go — cola en memoria de actualizaciones de precio con dedupe.
//
// Cada mercado tiene como mucho un job pendiente: encolar de nuevo el
// mismo marketId sustituye el payload anterior (gana el último precio
// observado) sin ocupar otro slot. Un pool acotado de workers drena la
// cola aplicando cada job contra storage; el fallo de un job se registra
// y nunca afecta al resto del lote.
//
// Un job aceptado se aplica exactamente una vez: tanto Close como la
// cancelación del contexto drenan el backlog antes de que los workers
// salgan, nunca lo descartan.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
)

// Config dimensiona la cola y su pool de workers.
type Config struct {
	// Capacity es el máximo de jobs pendientes distintos.
	Capacity int
	// Workers es el número de goroutines consumidoras.
	Workers int
}

// Queue implementa ports.UpdateQueue sobre un canal buffered más un mapa
// de payloads pendientes por marketId.
type Queue struct {
	store ports.MarketStore

	mu      sync.Mutex
	pending map[string]domain.SyncJob
	ids     chan string
	closed  bool

	workers int
	wg      sync.WaitGroup

	enqueued   atomic.Int64
	superseded atomic.Int64
	applied    atomic.Int64
	failed     atomic.Int64
}

// New crea la cola sin arrancar los workers; llamar a Start después.
func New(cfg Config, store ports.MarketStore) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	return &Queue{
		store:   store,
		pending: make(map[string]domain.SyncJob, cfg.Capacity),
		ids:     make(chan string, cfg.Capacity),
		workers: cfg.Workers,
	}
}

// Start arranca el pool de workers. Los workers terminan al cancelar el
// contexto o al llamar a Close, en ambos casos después de drenar el
// backlog aceptado.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	slog.Info("update queue started", "workers", q.workers, "capacity", cap(q.ids))
}

// Wait bloquea hasta que todos los workers hayan salido.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Close deja de aceptar jobs, drena el backlog pendiente y espera a que
// los workers terminen. Es idempotente.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ids)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue añade jobs sin bloquear nunca al caller. Devuelve cuántos jobs
// quedaron pendientes (nuevos o sustituidos); si alguno no cupo por
// capacidad, o la cola ya está cerrada, se descarta y se devuelve un
// error junto al conteo.
func (q *Queue) Enqueue(jobs []domain.SyncJob) (int, error) {
	accepted := 0
	dropped := 0
	for _, job := range jobs {
		if job.MarketID == "" {
			continue
		}

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			dropped++
			continue
		}
		if _, exists := q.pending[job.MarketID]; exists {
			// Ya hay un slot en el canal para este mercado; solo se
			// refresca el payload.
			q.pending[job.MarketID] = job
			q.mu.Unlock()
			q.superseded.Add(1)
			accepted++
			continue
		}

		select {
		case q.ids <- job.MarketID:
			q.pending[job.MarketID] = job
			q.mu.Unlock()
			q.enqueued.Add(1)
			accepted++
		default:
			q.mu.Unlock()
			dropped++
			slog.Warn("update queue full, dropping job", "market_id", job.MarketID)
		}
	}
	if dropped > 0 {
		return accepted, fmt.Errorf("queue.Enqueue: buffer full, dropped %d of %d jobs", dropped, len(jobs))
	}
	return accepted, nil
}

// BacklogSize devuelve el número de jobs pendientes de aplicar.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stats devuelve los contadores acumulados desde el arranque.
func (q *Queue) Stats() domain.QueueStats {
	return domain.QueueStats{
		Enqueued:   q.enqueued.Load(),
		Superseded: q.superseded.Load(),
		Applied:    q.applied.Load(),
		Failed:     q.failed.Load(),
		Backlog:    q.BacklogSize(),
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx)
			return
		case id, ok := <-q.ids:
			if !ok {
				return
			}
			q.apply(ctx, id)
		}
	}
}

// drain aplica lo que quede en el canal tras la cancelación antes de
// que el worker salga.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case id, ok := <-q.ids:
			if !ok {
				return
			}
			q.apply(ctx, id)
		default:
			return
		}
	}
}

// apply escribe el job en storage con un contexto desligado de la señal
// de parada: un job aceptado se aplica completo aunque la cancelación
// llegue a mitad del lote.
func (q *Queue) apply(ctx context.Context, id string) {
	q.mu.Lock()
	job, ok := q.pending[id]
	delete(q.pending, id)
	q.mu.Unlock()
	if !ok {
		return
	}

	if err := q.store.ApplyPriceUpdate(context.WithoutCancel(ctx), job); err != nil {
		q.failed.Add(1)
		slog.Warn("price update failed",
			"market_id", job.MarketID,
			"err", err,
		)
		return
	}
	q.applied.Add(1)
}
