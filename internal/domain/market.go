package domain

import "time"

// MarketSource indica de dónde salió un mercado local.
type MarketSource string

const (
	SourceExternalFeed MarketSource = "EXTERNAL_FEED"
	SourceFactory      MarketSource = "FACTORY"
)

// MarketStatus es el estado de trading de un mercado local.
type MarketStatus string

const (
	MarketOpen     MarketStatus = "OPEN"
	MarketResolved MarketStatus = "RESOLVED"
	MarketClosed   MarketStatus = "CLOSED"
)

// MarketInstance es un mercado local instanciado desde una plantilla o
// adoptado del feed externo. Este core solo escribe ExternalID (antes de
// que el mercado abra en el feed remoto) y los campos de precio derivados;
// el resto pertenece a la factory.
type MarketInstance struct {
	ID          string
	Title       string
	TemplateRef string
	// ExternalID es el id del listing remoto; vacío = sin vincular.
	ExternalID         string
	Symbol             string // del template, necesario para resolver ExternalID
	PeriodMinutes      int
	CloseAt            time.Time
	IsFactoryGenerated bool
	Source             MarketSource
	Status             MarketStatus
}

// Resolvable devuelve true si el mercado reúne los metadatos necesarios
// para intentar la resolución de identidad externa.
func (m MarketInstance) Resolvable() bool {
	return m.IsFactoryGenerated &&
		m.TemplateRef != "" &&
		m.Symbol != "" &&
		m.PeriodMinutes > 0 &&
		!m.CloseAt.IsZero()
}

// SeriesDescriptor es un descriptor de serie recurrente del feed remoto.
type SeriesDescriptor struct {
	ID         string
	Title      string
	Slug       string
	Recurrence string // "hourly" | "daily" | "weekly" | "monthly" | ""
}

// Listing es un listing individual del feed remoto.
type Listing struct {
	ID    string
	Title string
	// RawOutcomePrices es el vector de precios tal y como lo devuelve el
	// feed (JSON array serializado, p.ej. `["0.52","0.48"]`). Vacío si el
	// payload no lo expone ni plano ni anidado.
	RawOutcomePrices string
	Active           bool
	Closed           bool
}
