package domain

import "time"

// RunStatus es el resultado global de una ejecución de tarea.
type RunStatus string

const (
	RunNormal   RunStatus = "NORMAL"
	RunAbnormal RunStatus = "ABNORMAL"
)

// MarketFailure es el registro estructurado de un mercado que no pudo
// procesarse en un tick. Sustituye al buffer global de logs del diseño
// original: toda la visibilidad de fallos por-item pasa por aquí.
type MarketFailure struct {
	MarketID    string `json:"marketId"`
	MarketTitle string `json:"marketTitle"`
	ExternalID  string `json:"externalId"`
	Reason      string `json:"reason"`
}

// RunStats resume un tick del synchronizer.
//
// Invariante: Scanned == Extracted + Skipped — cada mercado escaneado cae
// exactamente en un bucket. Los mercados filtrados por el diff (sin cambio
// de precio significativo) cuentan dentro de Extracted, no de Skipped.
type RunStats struct {
	Scanned      int             `json:"scanned"`
	Extracted    int             `json:"extracted"`
	PriceChanged int             `json:"priceChanged"`
	Enqueued     int             `json:"enqueued"`
	Filtered     int             `json:"filtered"`
	Skipped      int             `json:"skipped"`
	HitRatePct   int             `json:"hitRatePct"`
	DurationMS   int64           `json:"durationMs"`
	Failures     []MarketFailure `json:"failures,omitempty"`
}

// RunRecord es el registro durable de una sola fila por tarea: se
// sobreescribe en cada ejecución, sin histórico.
type RunRecord struct {
	TaskName  string
	Status    RunStatus
	LastRunAt time.Time
	Error     string // mensaje del fallo top-level cuando Status == ABNORMAL
	Stats     RunStats
}
