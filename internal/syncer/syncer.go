package syncer

// syncer.go — tick de sincronización diferencial de precios.
//
// Cada tick carga los mercados locales sincronizables, los cruza con el
// snapshot bulk del feed y solo encola actualizaciones cuyo precio YES se
// movió más que el epsilon respecto al último valor cacheado. El Run Ledger
// recibe un RunRecord por tick, se haga trabajo o no.
//
// Solapamiento: el ticker dispara a intervalo fijo pero un tick que sigue
// corriendo hace que el siguiente se salte (guard single-flight). El diseño
// original no especificaba qué pasa en sobrecarga; aquí la elección es
// explícita y queda contada en los logs.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
)

// TaskName identifica el registro del synchronizer en el Run Ledger.
const TaskName = "odds_sync"

// Config controla el ciclo de sincronización.
type Config struct {
	// Interval es el periodo del ticker.
	Interval time.Duration
	// Epsilon es el umbral del diff: deltas de precio menores o iguales
	// no generan escritura.
	Epsilon float64
	// Workers acota la concurrencia del procesado por-mercado.
	Workers int
}

// DefaultConfig devuelve los valores del diseño original.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Epsilon:  0.001,
		Workers:  10,
	}
}

// Syncer orquesta feed, resolver, caché de precios, cola y ledger.
type Syncer struct {
	cfg      Config
	feed     ports.FeedClient
	markets  ports.MarketStore
	ledger   ports.RunLedger
	resolver ports.Resolver
	cache    ports.PriceCache
	queue    ports.UpdateQueue

	running atomic.Bool
}

// New crea un Syncer con las dependencias inyectadas.
func New(
	cfg Config,
	feed ports.FeedClient,
	markets ports.MarketStore,
	ledger ports.RunLedger,
	resolver ports.Resolver,
	cache ports.PriceCache,
	queue ports.UpdateQueue,
) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.001
	}
	return &Syncer{
		cfg:      cfg,
		feed:     feed,
		markets:  markets,
		ledger:   ledger,
		resolver: resolver,
		cache:    cache,
		queue:    queue,
	}
}

// Run ejecuta ticks a intervalo fijo hasta que el contexto se cancela.
// El primer tick sale inmediatamente, sin esperar al ticker.
func (s *Syncer) Run(ctx context.Context) {
	slog.Info("syncer started", "interval", s.cfg.Interval, "epsilon", s.cfg.Epsilon)

	s.guardedTick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("syncer stopped")
			return
		case <-ticker.C:
			s.guardedTick(ctx)
		}
	}
}

// guardedTick salta el tick si el anterior sigue en curso.
func (s *Syncer) guardedTick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("previous sync tick still running, skipping")
		return
	}
	defer s.running.Store(false)
	s.Tick(ctx)
}

// marketResult es el desenlace de un mercado dentro del tick. Exactamente
// uno de los buckets aplica.
type marketResult struct {
	filtered bool
	skipped  bool
	job      *domain.SyncJob
	failure  *domain.MarketFailure
}

// Tick ejecuta una pasada completa de sincronización y persiste el
// RunRecord resultante. Nunca devuelve error: los fallos top-level quedan
// reflejados en el registro con estado ABNORMAL.
func (s *Syncer) Tick(ctx context.Context) domain.RunStats {
	start := time.Now()

	markets, err := s.markets.ListSyncableMarkets(ctx)
	if err != nil {
		return s.recordAbnormal(ctx, start, fmt.Errorf("list syncable markets: %w", err))
	}
	if len(markets) == 0 {
		// No-op válido: el registro de todo-a-cero también se persiste.
		stats := domain.RunStats{DurationMS: time.Since(start).Milliseconds()}
		s.writeRecord(ctx, domain.RunNormal, stats, "")
		return stats
	}

	open, err := s.feed.ListOpenListings(ctx)
	if err != nil {
		return s.recordAbnormal(ctx, start, fmt.Errorf("bulk open listings: %w", err))
	}

	index := make(map[string]domain.Listing, len(open))
	for _, l := range open {
		index[l.ID] = l
	}

	if err := s.mergeMissingFactoryListings(ctx, markets, index); err != nil {
		// Fallo degradado, no abortivo: el snapshot abierto sigue siendo
		// válido y los mercados cuyo listing sí está siguen sincronizando.
		slog.Warn("supplementary listings fetch failed, continuing with open snapshot", "err", err)
	}

	results := processMarketsConcurrent(ctx, markets, s.cfg.Workers,
		func(ctx context.Context, m domain.MarketInstance) marketResult {
			return s.processMarket(ctx, m, index)
		})

	stats := s.aggregate(results)
	stats.DurationMS = time.Since(start).Milliseconds()

	s.writeRecord(ctx, domain.RunNormal, stats, "")
	slog.Info("sync tick complete",
		"scanned", stats.Scanned,
		"extracted", stats.Extracted,
		"enqueued", stats.Enqueued,
		"filtered", stats.Filtered,
		"skipped", stats.Skipped,
		"duration_ms", stats.DurationMS,
	)
	return stats
}

// mergeMissingFactoryListings cubre el hueco del snapshot abierto: la
// contrapartida remota de un mercado de factory puede no estar abierta
// públicamente todavía. Solo hace el fetch completo si falta alguna.
func (s *Syncer) mergeMissingFactoryListings(
	ctx context.Context,
	markets []domain.MarketInstance,
	index map[string]domain.Listing,
) error {
	missing := false
	for _, m := range markets {
		if m.IsFactoryGenerated && m.ExternalID != "" {
			if _, ok := index[m.ExternalID]; !ok {
				missing = true
				break
			}
		}
	}
	if !missing {
		return nil
	}

	all, err := s.feed.ListAllListings(ctx)
	if err != nil {
		return fmt.Errorf("bulk all listings: %w", err)
	}
	for _, l := range all {
		if _, ok := index[l.ID]; !ok {
			index[l.ID] = l
		}
	}
	return nil
}

// processMarket resuelve identidad, localiza el listing, extrae el precio
// y decide filtrar o encolar. Todo fallo se convierte en un MarketFailure;
// nada se propaga hacia arriba. El índice solo se lee desde aquí.
func (s *Syncer) processMarket(
	ctx context.Context,
	m domain.MarketInstance,
	index map[string]domain.Listing,
) marketResult {
	externalID := m.ExternalID
	justResolved := false

	if externalID == "" {
		if !m.Resolvable() {
			return skipResult(m, "", "no external id / resolution failed")
		}
		resolved, err := s.resolver.Resolve(ctx, ports.ResolveRequest{
			Symbol:        m.Symbol,
			PeriodMinutes: m.PeriodMinutes,
			CloseAt:       m.CloseAt,
			LocalStatus:   m.Status,
			LocalMarketID: m.ID,
		})
		if err != nil {
			return skipResult(m, "", "no external id / resolution failed")
		}
		if err := s.markets.BindExternalID(ctx, m.ID, resolved); err != nil {
			slog.Warn("external id bind failed", "market_id", m.ID, "err", err)
			return skipResult(m, resolved, "no external id / resolution failed")
		}
		externalID = resolved
		justResolved = true
	}

	listing, found := index[externalID]
	if !found && justResolved {
		// El snapshot es anterior al binding; un fetch individual antes de
		// rendirse.
		fetched, err := s.feed.GetListing(ctx, externalID)
		if err == nil {
			listing, found = fetched, true
		}
	}
	if !found {
		return skipResult(m, externalID, "listing not found remotely")
	}

	yes, no, ok := ParseOutcomePrices(listing.RawOutcomePrices)
	if !ok {
		return skipResult(m, externalID, "malformed payload")
	}

	cached, hasCached, err := s.cache.Get(ctx, m.ID)
	if err != nil {
		// Error de caché cuenta como miss: mejor una escritura de más que
		// una actualización perdida.
		slog.Warn("price cache read failed", "market_id", m.ID, "err", err)
		hasCached = false
	}
	if hasCached && math.Abs(yes-cached) <= s.cfg.Epsilon {
		return marketResult{filtered: true}
	}

	if err := s.cache.Put(ctx, m.ID, yes); err != nil {
		slog.Warn("price cache write failed", "market_id", m.ID, "err", err)
	}

	yesPct, noPct, initial := DeriveProbabilities(yes, no)
	return marketResult{job: &domain.SyncJob{
		MarketID:         m.ID,
		RawOutcomePrices: listing.RawOutcomePrices,
		InitialPrice:     initial,
		YesProbability:   yesPct,
		NoProbability:    noPct,
	}}
}

func skipResult(m domain.MarketInstance, externalID, reason string) marketResult {
	if externalID == "" {
		externalID = m.ExternalID
	}
	return marketResult{
		skipped: true,
		failure: &domain.MarketFailure{
			MarketID:    m.ID,
			MarketTitle: m.Title,
			ExternalID:  externalID,
			Reason:      reason,
		},
	}
}

// aggregate reduce los resultados por-mercado a RunStats y encola los jobs
// preparados en un solo lote.
func (s *Syncer) aggregate(results []marketResult) domain.RunStats {
	var stats domain.RunStats
	var jobs []domain.SyncJob

	for _, r := range results {
		stats.Scanned++
		switch {
		case r.skipped:
			stats.Skipped++
			if r.failure != nil {
				stats.Failures = append(stats.Failures, *r.failure)
			}
		case r.filtered:
			stats.Extracted++
			stats.Filtered++
		case r.job != nil:
			stats.Extracted++
			stats.PriceChanged++
			jobs = append(jobs, *r.job)
		}
	}

	if len(jobs) > 0 {
		accepted, err := s.queue.Enqueue(jobs)
		if err != nil {
			slog.Warn("enqueue failed", "jobs", len(jobs), "err", err)
		}
		stats.Enqueued = accepted
	}

	if stats.Extracted > 0 {
		stats.HitRatePct = int(math.Round(float64(stats.Filtered) / float64(stats.Extracted) * 100))
	}
	return stats
}

// recordAbnormal persiste un RunRecord ABNORMAL con el mensaje del fallo
// top-level. El tick termina aquí pero el proceso sigue: el siguiente tick
// procede con normalidad.
func (s *Syncer) recordAbnormal(ctx context.Context, start time.Time, err error) domain.RunStats {
	stats := domain.RunStats{DurationMS: time.Since(start).Milliseconds()}
	slog.Error("sync tick aborted", "err", err)
	s.writeRecord(ctx, domain.RunAbnormal, stats, err.Error())
	return stats
}

func (s *Syncer) writeRecord(ctx context.Context, status domain.RunStatus, stats domain.RunStats, errMsg string) {
	rec := domain.RunRecord{
		TaskName:  TaskName,
		Status:    status,
		LastRunAt: time.Now().UTC(),
		Error:     errMsg,
		Stats:     stats,
	}
	if err := s.ledger.UpsertRunRecord(ctx, rec); err != nil {
		slog.Error("run record write failed", "task", TaskName, "err", err)
	}
}
