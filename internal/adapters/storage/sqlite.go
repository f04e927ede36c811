package storage

// sqlite.go — persistencia de plantillas, mercados y registros de ejecución.
//
// Estrategia:
//   - `templates`: una fila por identidad (symbol, period, kind), UPSERT.
//     La identidad nunca se reescribe; solo cambian los campos derivados.
//   - `markets`: el ciclo de vida pertenece a la factory; este core solo
//     escribe external_id y los campos de precio.
//   - `run_records`: una fila por tarea, sobreescrita en cada ejecución,
//     con las stats serializadas como JSON en la propia fila.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por identidad (symbol, period, kind)
CREATE TABLE IF NOT EXISTS templates (
    id              TEXT PRIMARY KEY,
    symbol          TEXT    NOT NULL,
    period_minutes  INTEGER NOT NULL,
    kind            TEXT    NOT NULL,
    title_pattern   TEXT    NOT NULL,
    series_ref      TEXT    NOT NULL DEFAULT '',
    status          TEXT    NOT NULL DEFAULT 'ACTIVE',
    failure_count   INTEGER NOT NULL DEFAULT 0,
    advance_minutes INTEGER NOT NULL DEFAULT 120,
    category_tag    TEXT    NOT NULL DEFAULT '',
    updated_at      TEXT    NOT NULL,
    UNIQUE(symbol, period_minutes, kind)
);

-- Mercados locales; la factory los crea, este core solo escribe
-- external_id y campos de precio
CREATE TABLE IF NOT EXISTS markets (
    id                 TEXT PRIMARY KEY,
    title              TEXT    NOT NULL DEFAULT '',
    template_ref       TEXT    NOT NULL DEFAULT '',
    external_id        TEXT    NOT NULL DEFAULT '',
    symbol             TEXT    NOT NULL DEFAULT '',
    period_minutes     INTEGER NOT NULL DEFAULT 0,
    close_at           TEXT    NOT NULL DEFAULT '',
    is_factory         INTEGER NOT NULL DEFAULT 0,
    source             TEXT    NOT NULL,
    status             TEXT    NOT NULL,
    raw_outcome_prices TEXT    NOT NULL DEFAULT '',
    initial_price      REAL    NOT NULL DEFAULT 0,
    yes_pct            INTEGER NOT NULL DEFAULT 0,
    no_pct             INTEGER NOT NULL DEFAULT 0,
    price_updated_at   TEXT    NOT NULL DEFAULT ''
);

-- Una fila por tarea, sin histórico
CREATE TABLE IF NOT EXISTS run_records (
    task_name   TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    last_run_at TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    stats_json  TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_templates_key ON templates(symbol, period_minutes, kind);
CREATE INDEX IF NOT EXISTS idx_markets_sync  ON markets(status, source, is_factory);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// --- TemplateStore ---

// GetTemplateByKey busca por la identidad compuesta. Devuelve
// ports.ErrNotFound si no existe.
func (s *SQLiteStorage) GetTemplateByKey(ctx context.Context, key domain.TemplateKey) (domain.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, period_minutes, kind, title_pattern, series_ref,
		       status, failure_count, advance_minutes, category_tag, updated_at
		FROM templates
		WHERE symbol = ? AND period_minutes = ? AND kind = ?
	`, key.Symbol, key.PeriodMinutes, string(key.Kind))

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return domain.Template{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("storage.GetTemplateByKey: %w", err)
	}
	return t, nil
}

// CreateTemplate inserta una plantilla nueva.
func (s *SQLiteStorage) CreateTemplate(ctx context.Context, t domain.Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates
			(id, symbol, period_minutes, kind, title_pattern, series_ref,
			 status, failure_count, advance_minutes, category_tag, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Symbol, t.PeriodMinutes, string(t.Kind), t.TitlePattern,
		t.SeriesRef, string(t.Status), t.FailureCount, t.AdvanceMinutes,
		t.CategoryTag, formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.CreateTemplate: %s/%d/%s: %w", t.Symbol, t.PeriodMinutes, t.Kind, err)
	}
	return nil
}

// UpdateTemplate actualiza los campos mutables de una plantilla existente,
// localizada por su identidad. Symbol/period/kind nunca se tocan.
func (s *SQLiteStorage) UpdateTemplate(ctx context.Context, t domain.Template) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET
			title_pattern   = ?,
			series_ref      = ?,
			status          = ?,
			failure_count   = ?,
			advance_minutes = ?,
			category_tag    = ?,
			updated_at      = ?
		WHERE symbol = ? AND period_minutes = ? AND kind = ?
	`,
		t.TitlePattern, t.SeriesRef, string(t.Status), t.FailureCount,
		t.AdvanceMinutes, t.CategoryTag, formatTime(t.UpdatedAt),
		t.Symbol, t.PeriodMinutes, string(t.Kind),
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateTemplate: %s/%d/%s: %w", t.Symbol, t.PeriodMinutes, t.Kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListTemplates devuelve todas las plantillas ordenadas por símbolo y periodo.
func (s *SQLiteStorage) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, period_minutes, kind, title_pattern, series_ref,
		       status, failure_count, advance_minutes, category_tag, updated_at
		FROM templates
		ORDER BY symbol, period_minutes, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTemplates: query: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListTemplates: scan row: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// --- MarketStore ---

// UpsertMarket inserta o reemplaza un mercado completo. Lo usa el lado de
// la factory que comparte esta base de datos; el synchronizer nunca lo llama.
func (s *SQLiteStorage) UpsertMarket(ctx context.Context, m domain.MarketInstance) error {
	isFactory := 0
	if m.IsFactoryGenerated {
		isFactory = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets
			(id, title, template_ref, external_id, symbol, period_minutes,
			 close_at, is_factory, source, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title          = excluded.title,
			template_ref   = excluded.template_ref,
			external_id    = excluded.external_id,
			symbol         = excluded.symbol,
			period_minutes = excluded.period_minutes,
			close_at       = excluded.close_at,
			is_factory     = excluded.is_factory,
			source         = excluded.source,
			status         = excluded.status
	`,
		m.ID, m.Title, m.TemplateRef, m.ExternalID, m.Symbol, m.PeriodMinutes,
		formatTime(m.CloseAt), isFactory, string(m.Source), string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.UpsertMarket: %s: %w", m.ID, err)
	}
	return nil
}

// ListSyncableMarkets devuelve los mercados OPEN con origen en el feed
// externo o generados por la factory.
func (s *SQLiteStorage) ListSyncableMarkets(ctx context.Context) ([]domain.MarketInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, template_ref, external_id, symbol, period_minutes,
		       close_at, is_factory, source, status
		FROM markets
		WHERE status = ? AND (source = ? OR is_factory = 1)
	`, string(domain.MarketOpen), string(domain.SourceExternalFeed))
	if err != nil {
		return nil, fmt.Errorf("storage.ListSyncableMarkets: query: %w", err)
	}
	defer rows.Close()

	var markets []domain.MarketInstance
	for rows.Next() {
		var m domain.MarketInstance
		var closeAt, source, status string
		var isFactory int
		if err := rows.Scan(
			&m.ID, &m.Title, &m.TemplateRef, &m.ExternalID, &m.Symbol,
			&m.PeriodMinutes, &closeAt, &isFactory, &source, &status,
		); err != nil {
			return nil, fmt.Errorf("storage.ListSyncableMarkets: scan row: %w", err)
		}
		m.CloseAt = parseTime(closeAt)
		m.IsFactoryGenerated = isFactory == 1
		m.Source = domain.MarketSource(source)
		m.Status = domain.MarketStatus(status)
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// BindExternalID persiste el id remoto resuelto para un mercado.
func (s *SQLiteStorage) BindExternalID(ctx context.Context, marketID, externalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE markets SET external_id = ? WHERE id = ?`,
		externalID, marketID,
	)
	if err != nil {
		return fmt.Errorf("storage.BindExternalID: %s: %w", marketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ApplyPriceUpdate escribe los campos de precio del job. Idempotente:
// aplicar dos veces el mismo job deja la fila igual.
func (s *SQLiteStorage) ApplyPriceUpdate(ctx context.Context, job domain.SyncJob) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE markets SET
			raw_outcome_prices = ?,
			initial_price      = ?,
			yes_pct            = ?,
			no_pct             = ?,
			price_updated_at   = ?
		WHERE id = ?
	`,
		job.RawOutcomePrices, job.InitialPrice, job.YesProbability,
		job.NoProbability, formatTime(time.Now().UTC()), job.MarketID,
	)
	if err != nil {
		return fmt.Errorf("storage.ApplyPriceUpdate: %s: %w", job.MarketID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// --- RunLedger ---

// UpsertRunRecord sobreescribe el registro de la tarea con las stats
// serializadas como JSON.
func (s *SQLiteStorage) UpsertRunRecord(ctx context.Context, rec domain.RunRecord) error {
	statsJSON, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("storage.UpsertRunRecord: marshal stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_records (task_name, status, last_run_at, error, stats_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_name) DO UPDATE SET
			status      = excluded.status,
			last_run_at = excluded.last_run_at,
			error       = excluded.error,
			stats_json  = excluded.stats_json
	`,
		rec.TaskName, string(rec.Status), formatTime(rec.LastRunAt),
		rec.Error, string(statsJSON),
	)
	if err != nil {
		return fmt.Errorf("storage.UpsertRunRecord: %s: %w", rec.TaskName, err)
	}
	return nil
}

// GetRunRecord devuelve el último registro de la tarea.
func (s *SQLiteStorage) GetRunRecord(ctx context.Context, taskName string) (domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_name, status, last_run_at, error, stats_json
		FROM run_records
		WHERE task_name = ?
	`, taskName)

	var rec domain.RunRecord
	var status, lastRunAt, statsJSON string
	err := row.Scan(&rec.TaskName, &status, &lastRunAt, &rec.Error, &statsJSON)
	if err == sql.ErrNoRows {
		return domain.RunRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRunRecord: %s: %w", taskName, err)
	}

	rec.Status = domain.RunStatus(status)
	rec.LastRunAt = parseTime(lastRunAt)
	if err := json.Unmarshal([]byte(statsJSON), &rec.Stats); err != nil {
		return domain.RunRecord{}, fmt.Errorf("storage.GetRunRecord: unmarshal stats: %w", err)
	}
	return rec, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (domain.Template, error) {
	var t domain.Template
	var kind, status, updatedAt string
	if err := row.Scan(
		&t.ID, &t.Symbol, &t.PeriodMinutes, &kind, &t.TitlePattern,
		&t.SeriesRef, &status, &t.FailureCount, &t.AdvanceMinutes,
		&t.CategoryTag, &updatedAt,
	); err != nil {
		return domain.Template{}, err
	}
	t.Kind = domain.TemplateKind(kind)
	t.Status = domain.TemplateStatus(status)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// Las fechas se guardan como texto RFC3339 para que el scan no dependa del
// formato del driver.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
