package domain

import "time"

// TemplateKind es la forma estructural de la condición de resolución
// de un mercado recurrente.
type TemplateKind string

const (
	KindUpOrDown     TemplateKind = "UP_OR_DOWN"
	KindHitPrice     TemplateKind = "HIT_PRICE"
	KindNegRisk      TemplateKind = "NEG_RISK"
	KindMultiStrikes TemplateKind = "MULTI_STRIKES"
	KindOther        TemplateKind = "OTHER"
)

// TemplateStatus es el estado operativo de una plantilla.
type TemplateStatus string

const (
	TemplateActive   TemplateStatus = "ACTIVE"
	TemplateDisabled TemplateStatus = "DISABLED"
)

// TemplateKey es la identidad compuesta de una plantilla.
// Invariante: como máximo una Template por key en cualquier momento.
type TemplateKey struct {
	Symbol        string
	PeriodMinutes int
	Kind          TemplateKind
}

// Template es la descripción parametrizada de un mercado recurrente
// (activo, periodo, tipo, patrón de título) desde la cual la factory
// — fuera de este core — instancia mercados concretos.
type Template struct {
	ID            string
	Symbol        string // formato canónico "BTC/USD"
	PeriodMinutes int
	Kind          TemplateKind
	// TitlePattern contiene los placeholders [StrikePrice], [EndTime]
	// y el símbolo ya sustituido.
	TitlePattern   string
	SeriesRef      string // id de la serie remota de la que se extrajo
	Status         TemplateStatus
	FailureCount   int
	AdvanceMinutes int
	CategoryTag    string
	UpdatedAt      time.Time
}

// Key devuelve la identidad compuesta (symbol, period, kind).
func (t Template) Key() TemplateKey {
	return TemplateKey{Symbol: t.Symbol, PeriodMinutes: t.PeriodMinutes, Kind: t.Kind}
}

// HarvestStats resume el resultado de una pasada del harvester.
type HarvestStats struct {
	Created int
	Updated int
	Skipped int
	Errors  int
}
