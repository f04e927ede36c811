package polymarket

import "encoding/json"

// DTOs raw de la API Gamma. Solo se usan dentro de este paquete;
// la conversión a domain entities vive en toListing (gamma.go).

// gammaSeries es un descriptor de serie de GET /series.
type gammaSeries struct {
	ID         json.Number `json:"id"`
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	Recurrence string      `json:"recurrence"`
}

// gammaSeriesDetail es la respuesta de GET /series/{id}.
type gammaSeriesDetail struct {
	ID     json.Number   `json:"id"`
	Title  string        `json:"title"`
	Events []gammaMarket `json:"events"`
}

// gammaMarket es un listing individual. Gamma devuelve outcomePrices como
// string JSON (`"[\"0.52\",\"0.48\"]"`) en unos endpoints y como array en
// otros; rawPrices tolera ambas formas. El vector puede venir plano o
// anidado un nivel bajo events[].markets[].
type gammaMarket struct {
	ID            json.Number  `json:"id"`
	Question      string       `json:"question"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	OutcomePrices rawPrices    `json:"outcomePrices"`
	Active        *bool        `json:"active"`
	Closed        bool         `json:"closed"`
	Events        []gammaEvent `json:"events"`
}

// gammaEvent es el nivel intermedio de la forma anidada del payload.
type gammaEvent struct {
	Markets []gammaSubMarket `json:"markets"`
}

// gammaSubMarket es el sub-listing que porta los precios en la forma anidada.
type gammaSubMarket struct {
	OutcomePrices rawPrices `json:"outcomePrices"`
}

// rawPrices conserva el vector de precios en su forma serializada original.
type rawPrices string

// UnmarshalJSON acepta tanto el string JSON como el array directo.
func (r *rawPrices) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = rawPrices(s)
		return nil
	}
	// No era string: conservar el array tal cual
	*r = rawPrices(data)
	return nil
}
