package harvester

// harvester.go — descubrimiento de plantillas desde las series del feed.
//
// Recorre las series recurrentes del proveedor, las clasifica con el
// classifier y hace upsert de Templates. Idempotente: una segunda pasada
// sobre los mismos datos produce created=0 y solo updates. Cada fallo
// por-serie o por-listing se cuenta y se sigue con el siguiente — un
// payload malformado nunca aborta la cosecha entera.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jock20242024/yesno-sub001/internal/classifier"
	"github.com/Jock20242024/yesno-sub001/internal/domain"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
)

// Config controla el muestreo y los defaults de las plantillas creadas.
type Config struct {
	// SampleSize acota cuántos listings se examinan por serie.
	SampleSize int
	// WideSampleSize aplica a los grupos de 15 y 60 minutos, que se
	// escanean sin filtro de activo y necesitan más muestra para cubrir
	// todos los símbolos.
	WideSampleSize int
	// MultiStrikeProbe acota cuántos títulos se inspeccionan buscando
	// strikes distintos.
	MultiStrikeProbe int
	// DefaultAdvanceMinutes se asigna a las plantillas nuevas.
	DefaultAdvanceMinutes int
	// CategoryTag se asigna a todas las plantillas cosechadas.
	CategoryTag string
}

// DefaultConfig devuelve los valores del diseño original.
func DefaultConfig() Config {
	return Config{
		SampleSize:            10,
		WideSampleSize:        50,
		MultiStrikeProbe:      10,
		DefaultAdvanceMinutes: 120,
		CategoryTag:           "crypto",
	}
}

// Harvester orquesta feed + classifier + storage.
type Harvester struct {
	cfg       Config
	feed      ports.FeedClient
	templates ports.TemplateStore
}

// New crea un Harvester con las dependencias inyectadas.
func New(cfg Config, feed ports.FeedClient, templates ports.TemplateStore) *Harvester {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 10
	}
	if cfg.WideSampleSize <= 0 {
		cfg.WideSampleSize = 50
	}
	if cfg.MultiStrikeProbe <= 0 {
		cfg.MultiStrikeProbe = 10
	}
	return &Harvester{cfg: cfg, feed: feed, templates: templates}
}

// candidate es una plantilla extraída de una serie, pendiente de upsert.
type candidate struct {
	symbol       string
	kind         domain.TemplateKind
	titlePattern string
	seriesRef    string
}

// Harvest ejecuta una pasada completa de cosecha. Solo el fetch inicial de
// series puede abortarla; todo fallo posterior se aísla por item.
func (h *Harvester) Harvest(ctx context.Context) (domain.HarvestStats, error) {
	var stats domain.HarvestStats
	start := time.Now()

	series, err := h.feed.ListSeries(ctx)
	if err != nil {
		return stats, fmt.Errorf("harvester.Harvest: list series: %w", err)
	}

	groups := h.groupByPeriod(series)

	// Dedupe de toda la pasada: la primera aparición de cada
	// (symbol, period, kind) gana.
	seen := make(map[domain.TemplateKey]bool)

	for period, periodSeries := range groups {
		for _, s := range periodSeries {
			if err := h.harvestSeries(ctx, s, period, seen, &stats); err != nil {
				stats.Errors++
				slog.Warn("series harvest failed",
					"series_id", s.ID,
					"series_title", s.Title,
					"err", err,
				)
			}
		}
	}

	slog.Info("harvest complete",
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, nil
}

// groupByPeriod filtra y agrupa las series por periodo soportado. Los
// grupos de 15m y 60m no se filtran por keyword de activo: esos dos
// periodos exigen escaneo exhaustivo para garantizar cobertura completa;
// el resto solo conserva series que mencionen un activo conocido.
func (h *Harvester) groupByPeriod(series []domain.SeriesDescriptor) map[int][]domain.SeriesDescriptor {
	groups := make(map[int][]domain.SeriesDescriptor)
	for _, s := range series {
		period, ok := classifier.ExtractSeriesPeriod(s.Title, s.Slug, s.Recurrence)
		if !ok || !classifier.IsSupportedPeriod(period) {
			continue
		}

		if period != classifier.Period15Min && period != classifier.PeriodHourly {
			if !classifier.HasKnownAsset(s.Title + " " + s.Slug) {
				continue
			}
		}
		groups[period] = append(groups[period], s)
	}
	return groups
}

// harvestSeries procesa una serie: muestrea sus listings, los clasifica y
// hace upsert de las plantillas únicas extraídas.
func (h *Harvester) harvestSeries(
	ctx context.Context,
	s domain.SeriesDescriptor,
	period int,
	seen map[domain.TemplateKey]bool,
	stats *domain.HarvestStats,
) error {
	listings, err := h.feed.GetSeriesDetail(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("series detail: %w", err)
	}
	if len(listings) == 0 {
		stats.Skipped++
		return nil
	}

	sampled := h.sample(listings, period)
	if len(sampled) == 0 {
		stats.Skipped++
		return nil
	}

	multiStrike := h.detectMultiStrike(s, sampled)
	seriesUpOrDown := classifier.IsUpOrDownSeries(s.Title)
	seriesSymbol, _ := classifier.ExtractSymbol(s.Title + " " + s.Slug)

	// Candidatos únicos de esta serie
	inSeries := make(map[domain.TemplateKey]candidate)
	dualTrackSkipped := false

	for _, listing := range sampled {
		if listing.Title == "" {
			continue
		}

		symbol, ok := classifier.ExtractSymbol(listing.Title)
		if !ok {
			symbol = seriesSymbol
		}
		if symbol == "" {
			continue
		}

		kind := classifier.ClassifyKind(listing.Title, s.Title)
		if multiStrike && !strings.Contains(strings.ToLower(listing.Title), "neg risk") {
			// La señal estructural sube la clasificación textual
			kind = domain.KindMultiStrikes
		}

		// Invariante de doble vía: las plantillas direccionales de periodo
		// estándar las genera la factory interna, nunca el harvester — si
		// dos sistemas compartieran la misma key acabarían pisándose.
		if seriesUpOrDown && kind == domain.KindUpOrDown && classifier.IsSupportedPeriod(period) {
			dualTrackSkipped = true
			continue
		}

		pattern := classifier.BuildTitlePattern(listing.Title)
		if pattern == "" {
			pattern = listing.Title
		}
		pattern = classifier.SubstituteAsset(pattern, symbol)

		key := domain.TemplateKey{Symbol: symbol, PeriodMinutes: period, Kind: kind}
		if seen[key] {
			continue
		}
		if _, dup := inSeries[key]; dup {
			continue
		}
		inSeries[key] = candidate{
			symbol:       symbol,
			kind:         kind,
			titlePattern: pattern,
			seriesRef:    s.ID,
		}
	}

	if dualTrackSkipped {
		stats.Skipped++
	}
	if len(inSeries) == 0 {
		if !dualTrackSkipped {
			stats.Skipped++
		}
		return nil
	}

	for key, cand := range inSeries {
		seen[key] = true
		created, err := h.upsert(ctx, key, cand)
		if err != nil {
			stats.Errors++
			slog.Warn("template upsert failed",
				"symbol", key.Symbol,
				"period", key.PeriodMinutes,
				"kind", key.Kind,
				"err", err,
			)
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}
	return nil
}

// sample prefiere los listings actualmente abiertos; si no hay ninguno,
// muestrea sobre todos con el límite del grupo.
func (h *Harvester) sample(listings []domain.Listing, period int) []domain.Listing {
	size := h.cfg.SampleSize
	if period == classifier.Period15Min || period == classifier.PeriodHourly {
		size = h.cfg.WideSampleSize
	}

	active := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Active && !l.Closed {
			active = append(active, l)
		}
	}
	if len(active) > 0 {
		if len(active) > size {
			return active[:size]
		}
		return active
	}

	if len(listings) > size {
		return listings[:size]
	}
	return listings
}

// detectMultiStrike busca la señal estructural multi-strike: más de un
// strike distinto entre los primeros títulos muestreados, o la palabra
// "strikes" en el título/slug de la serie.
func (h *Harvester) detectMultiStrike(s domain.SeriesDescriptor, sampled []domain.Listing) bool {
	if strings.Contains(strings.ToLower(s.Title), "strikes") ||
		strings.Contains(strings.ToLower(s.Slug), "strikes") {
		return true
	}

	probe := sampled
	if len(probe) > h.cfg.MultiStrikeProbe {
		probe = probe[:h.cfg.MultiStrikeProbe]
	}

	distinct := make(map[string]bool)
	for _, l := range probe {
		for _, amount := range classifier.CurrencyAmounts(l.Title) {
			distinct[amount] = true
		}
	}
	return len(distinct) > 1
}

// upsert crea la plantilla si la key no existe, o actualiza los campos
// mutables (titlePattern, seriesRef, categoryTag) si ya está. Los campos
// de identidad nunca cambian. Devuelve true si se creó una fila nueva.
func (h *Harvester) upsert(ctx context.Context, key domain.TemplateKey, cand candidate) (bool, error) {
	existing, err := h.templates.GetTemplateByKey(ctx, key)
	switch {
	case err == nil:
		existing.TitlePattern = cand.titlePattern
		existing.SeriesRef = cand.seriesRef
		existing.CategoryTag = h.cfg.CategoryTag
		existing.UpdatedAt = time.Now().UTC()
		if err := h.templates.UpdateTemplate(ctx, existing); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
		return false, nil

	case errors.Is(err, ports.ErrNotFound):
		t := domain.Template{
			ID:             uuid.NewString(),
			Symbol:         cand.symbol,
			PeriodMinutes:  key.PeriodMinutes,
			Kind:           cand.kind,
			TitlePattern:   cand.titlePattern,
			SeriesRef:      cand.seriesRef,
			Status:         domain.TemplateActive,
			FailureCount:   0,
			AdvanceMinutes: h.cfg.DefaultAdvanceMinutes,
			CategoryTag:    h.cfg.CategoryTag,
			UpdatedAt:      time.Now().UTC(),
		}
		if err := h.templates.CreateTemplate(ctx, t); err != nil {
			return false, fmt.Errorf("create: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("lookup: %w", err)
	}
}
