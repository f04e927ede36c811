package domain

// SyncJob es una actualización de precio pendiente de aplicar a un mercado.
// La crea el synchronizer y la consume exactamente una vez un worker de la
// cola; no se persiste más allá de la vida de la cola.
type SyncJob struct {
	MarketID         string
	RawOutcomePrices string  // payload original, se guarda tal cual
	InitialPrice     float64 // precio YES derivado
	YesProbability   int     // porcentaje normalizado, 0-100
	NoProbability    int     // 100 - YesProbability
}

// QueueStats es el estado observacional de la cola de actualizaciones.
// Solo para visibilidad operativa, no afecta a la corrección.
type QueueStats struct {
	Enqueued   int64
	Superseded int64
	Applied    int64
	Failed     int64
	Backlog    int
}
