package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
)

// --- dobles de prueba ---

type stubFeed struct {
	open      []domain.Listing
	all       []domain.Listing
	byID      map[string]domain.Listing
	openErr   error
	allErr    error
	singleGot []string
	mu        sync.Mutex
}

func (f *stubFeed) ListSeries(ctx context.Context) ([]domain.SeriesDescriptor, error) {
	return nil, nil
}

func (f *stubFeed) GetSeriesDetail(ctx context.Context, seriesID string) ([]domain.Listing, error) {
	return nil, nil
}

func (f *stubFeed) ListOpenListings(ctx context.Context) ([]domain.Listing, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.open, nil
}

func (f *stubFeed) ListAllListings(ctx context.Context) ([]domain.Listing, error) {
	if f.allErr != nil {
		return nil, f.allErr
	}
	return f.all, nil
}

func (f *stubFeed) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	f.mu.Lock()
	f.singleGot = append(f.singleGot, id)
	f.mu.Unlock()
	if l, ok := f.byID[id]; ok {
		return l, nil
	}
	return domain.Listing{}, ports.ErrNotFound
}

type stubMarkets struct {
	mu      sync.Mutex
	markets []domain.MarketInstance
	listErr error
	bound   map[string]string
}

func (s *stubMarkets) ListSyncableMarkets(ctx context.Context) ([]domain.MarketInstance, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.markets, nil
}

func (s *stubMarkets) BindExternalID(ctx context.Context, marketID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound == nil {
		s.bound = make(map[string]string)
	}
	s.bound[marketID] = externalID
	return nil
}

func (s *stubMarkets) ApplyPriceUpdate(ctx context.Context, job domain.SyncJob) error {
	return nil
}

type stubLedger struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

func (l *stubLedger) UpsertRunRecord(ctx context.Context, rec domain.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *stubLedger) GetRunRecord(ctx context.Context, taskName string) (domain.RunRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return domain.RunRecord{}, ports.ErrNotFound
	}
	return l.records[len(l.records)-1], nil
}

func (l *stubLedger) last(t *testing.T) domain.RunRecord {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.records)
	return l.records[len(l.records)-1]
}

type stubResolver struct {
	byMarket map[string]string
}

func (r *stubResolver) Resolve(ctx context.Context, req ports.ResolveRequest) (string, error) {
	if id, ok := r.byMarket[req.LocalMarketID]; ok {
		return id, nil
	}
	return "", ports.ErrNoMatch
}

type stubCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newStubCache() *stubCache {
	return &stubCache{prices: make(map[string]float64)}
}

func (c *stubCache) Get(ctx context.Context, marketID string) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[marketID]
	return p, ok, nil
}

func (c *stubCache) Put(ctx context.Context, marketID string, yesPrice float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[marketID] = yesPrice
	return nil
}

type captureQueue struct {
	mu   sync.Mutex
	jobs []domain.SyncJob
}

func (q *captureQueue) Enqueue(jobs []domain.SyncJob) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, jobs...)
	return len(jobs), nil
}

func (q *captureQueue) BacklogSize() int { return 0 }

func (q *captureQueue) Stats() domain.QueueStats { return domain.QueueStats{} }

type fixture struct {
	feed     *stubFeed
	markets  *stubMarkets
	ledger   *stubLedger
	resolver *stubResolver
	cache    *stubCache
	queue    *captureQueue
	syncer   *Syncer
}

func newFixture() *fixture {
	f := &fixture{
		feed:     &stubFeed{byID: make(map[string]domain.Listing)},
		markets:  &stubMarkets{},
		ledger:   &stubLedger{},
		resolver: &stubResolver{byMarket: make(map[string]string)},
		cache:    newStubCache(),
		queue:    &captureQueue{},
	}
	cfg := DefaultConfig()
	cfg.Workers = 4
	f.syncer = New(cfg, f.feed, f.markets, f.ledger, f.resolver, f.cache, f.queue)
	return f
}

func openMarket(id, externalID string) domain.MarketInstance {
	return domain.MarketInstance{
		ID:         id,
		Title:      "Market " + id,
		ExternalID: externalID,
		Source:     domain.SourceExternalFeed,
		Status:     domain.MarketOpen,
	}
}

// --- tests ---

func TestTickNoMarketsWritesZeroRecord(t *testing.T) {
	f := newFixture()

	stats := f.syncer.Tick(context.Background())

	assert.Zero(t, stats.Scanned)
	rec := f.ledger.last(t)
	assert.Equal(t, TaskName, rec.TaskName)
	assert.Equal(t, domain.RunNormal, rec.Status)
	assert.Zero(t, rec.Stats.Scanned)
	assert.False(t, rec.LastRunAt.IsZero())
}

func TestTickFeedFailureWritesAbnormalRecord(t *testing.T) {
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{openMarket("m1", "x1")}
	f.feed.openErr = errors.New("connection refused")

	f.syncer.Tick(context.Background())

	rec := f.ledger.last(t)
	assert.Equal(t, domain.RunAbnormal, rec.Status)
	assert.Contains(t, rec.Error, "bulk open listings")
	assert.Contains(t, rec.Error, "connection refused")
	assert.Empty(t, f.queue.jobs)
}

func TestTickDiffFilter(t *testing.T) {
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{
		openMarket("m-small", "x-small"),
		openMarket("m-big", "x-big"),
	}
	f.feed.open = []domain.Listing{
		{ID: "x-small", Title: "small delta", RawOutcomePrices: `["0.5005","0.4995"]`},
		{ID: "x-big", Title: "big delta", RawOutcomePrices: `["0.503","0.497"]`},
	}
	f.cache.prices["m-small"] = 0.50
	f.cache.prices["m-big"] = 0.50

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Extracted)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 1, stats.Enqueued)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "m-big", f.queue.jobs[0].MarketID)

	// La caché quedó actualizada solo para el que cambió
	cached, ok, _ := f.cache.Get(context.Background(), "m-big")
	require.True(t, ok)
	assert.InDelta(t, 0.503, cached, 1e-9)
	cached, _, _ = f.cache.Get(context.Background(), "m-small")
	assert.InDelta(t, 0.50, cached, 1e-9)
}

func TestTickEndToEndBuckets(t *testing.T) {
	// Tres mercados: precio clavado al cacheado (filtered), delta de 0.01
	// (enqueued), y uno sin externalId con resolver fallando (skipped).
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{
		openMarket("m-exact", "x-exact"),
		openMarket("m-moved", "x-moved"),
		{
			ID:                 "m-unbound",
			Title:              "Market m-unbound",
			IsFactoryGenerated: true,
			TemplateRef:        "t1",
			Symbol:             "BTC/USD",
			PeriodMinutes:      60,
			CloseAt:            time.Now().Add(time.Hour),
			Source:             domain.SourceFactory,
			Status:             domain.MarketOpen,
		},
	}
	f.feed.open = []domain.Listing{
		{ID: "x-exact", Title: "exact", RawOutcomePrices: `["0.50","0.50"]`},
		{ID: "x-moved", Title: "moved", RawOutcomePrices: `["0.51","0.49"]`},
	}
	f.cache.prices["m-exact"] = 0.50
	f.cache.prices["m-moved"] = 0.50

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 2, stats.Extracted)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 1, stats.Enqueued)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, stats.Scanned, stats.Extracted+stats.Skipped)

	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "m-unbound", stats.Failures[0].MarketID)
	assert.Equal(t, "no external id / resolution failed", stats.Failures[0].Reason)

	assert.Equal(t, 50, stats.HitRatePct)
}

func TestTickResolvesAndBindsExternalID(t *testing.T) {
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{{
		ID:                 "m-factory",
		Title:              "Factory market",
		IsFactoryGenerated: true,
		TemplateRef:        "t1",
		Symbol:             "ETH/USD",
		PeriodMinutes:      60,
		CloseAt:            time.Now().Add(time.Hour),
		Source:             domain.SourceFactory,
		Status:             domain.MarketOpen,
	}}
	f.resolver.byMarket["m-factory"] = "x-resolved"
	// El listing no está en el snapshot (se tomó antes del binding); solo
	// aparece en el fetch individual.
	f.feed.byID["x-resolved"] = domain.Listing{
		ID:               "x-resolved",
		Title:            "resolved",
		RawOutcomePrices: `["0.62","0.38"]`,
	}

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, "x-resolved", f.markets.bound["m-factory"])
	assert.Equal(t, []string{"x-resolved"}, f.feed.singleGot)
	assert.Equal(t, 1, stats.Enqueued)
	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, "m-factory", job.MarketID)
	assert.Equal(t, 62, job.YesProbability)
	assert.Equal(t, 38, job.NoProbability)
	assert.InDelta(t, 0.62, job.InitialPrice, 1e-9)
}

func TestTickSupplementaryFetchForClosedFactoryListing(t *testing.T) {
	// El mercado de factory ya tiene externalId pero su listing remoto no
	// está abierto: debe encontrarse en el snapshot completo.
	f := newFixture()
	m := openMarket("m-f", "x-f")
	m.IsFactoryGenerated = true
	f.markets.markets = []domain.MarketInstance{m}
	f.feed.all = []domain.Listing{
		{ID: "x-f", Title: "not yet open", RawOutcomePrices: `["0.40","0.60"]`, Closed: false},
	}

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 1, stats.Enqueued)
	assert.Zero(t, stats.Skipped)
	assert.Empty(t, f.feed.singleGot, "no hace falta fetch individual si el snapshot completo lo trae")
}

func TestTickSupplementaryFetchFailureDegrades(t *testing.T) {
	// Si el snapshot completo falla, el tick sigue con el snapshot abierto:
	// los mercados cuyo listing sí está presente se sincronizan igual y el
	// registro queda NORMAL.
	f := newFixture()
	missing := openMarket("m-missing", "x-missing")
	missing.IsFactoryGenerated = true
	f.markets.markets = []domain.MarketInstance{
		openMarket("m-ok", "x-ok"),
		missing,
	}
	f.feed.open = []domain.Listing{
		{ID: "x-ok", Title: "present", RawOutcomePrices: `["0.55","0.45"]`},
	}
	f.feed.allErr = errors.New("gateway timeout")

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Enqueued)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "m-ok", f.queue.jobs[0].MarketID)

	rec := f.ledger.last(t)
	assert.Equal(t, domain.RunNormal, rec.Status)
	assert.Empty(t, rec.Error)
}

func TestTickMalformedPayloadSkips(t *testing.T) {
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{openMarket("m1", "x1")}
	f.feed.open = []domain.Listing{{ID: "x1", Title: "broken", RawOutcomePrices: `["only-one"]`}}

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "malformed payload", stats.Failures[0].Reason)
}

func TestTickListingNotFoundSkips(t *testing.T) {
	f := newFixture()
	f.markets.markets = []domain.MarketInstance{openMarket("m1", "x-gone")}
	f.feed.open = []domain.Listing{{ID: "x-other", RawOutcomePrices: `["0.5","0.5"]`}}

	stats := f.syncer.Tick(context.Background())

	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "listing not found remotely", stats.Failures[0].Reason)
	// Sin binding reciente no hay fetch individual de rescate
	assert.Empty(t, f.feed.singleGot)
}

func TestGuardedTickSkipsOverlap(t *testing.T) {
	f := newFixture()
	f.syncer.running.Store(true)

	f.syncer.guardedTick(context.Background())

	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	assert.Empty(t, f.ledger.records, "un tick solapado no debe ejecutarse ni escribir registro")
}

func TestParseOutcomePrices(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantYes float64
		wantNo  float64
		wantOK  bool
	}{
		{"string elems", `["0.52","0.48"]`, 0.52, 0.48, true},
		{"numeric elems", `[0.52, 0.48]`, 0.52, 0.48, true},
		{"empty", ``, 0, 0, false},
		{"not json", `precio`, 0, 0, false},
		{"single elem", `["0.52"]`, 0, 0, false},
		{"non numeric elem", `["0.52","abc"]`, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yes, no, ok := ParseOutcomePrices(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.InDelta(t, tc.wantYes, yes, 1e-9)
				assert.InDelta(t, tc.wantNo, no, 1e-9)
			}
		})
	}
}

func TestDeriveProbabilities(t *testing.T) {
	yesPct, noPct, initial := DeriveProbabilities(0.62, 0.38)
	assert.Equal(t, 62, yesPct)
	assert.Equal(t, 38, noPct)
	assert.InDelta(t, 0.62, initial, 1e-9)

	// Suma cero cae al default
	yesPct, noPct, initial = DeriveProbabilities(0, 0)
	assert.Equal(t, 50, yesPct)
	assert.Equal(t, 50, noPct)
	assert.InDelta(t, 0.5, initial, 1e-9)

	// Precio negativo también
	yesPct, noPct, _ = DeriveProbabilities(-0.1, 0.6)
	assert.Equal(t, 50, yesPct)
	assert.Equal(t, 50, noPct)

	// Normalización cuando la suma no es 1
	yesPct, noPct, _ = DeriveProbabilities(0.3, 0.1)
	assert.Equal(t, 75, yesPct)
	assert.Equal(t, 25, noPct)
}
