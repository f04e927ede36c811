package pricecache

// memory.go — caché de precios en proceso, el backend por defecto.
//
// Mantiene el último precio YES empujado por mercado, con expiración
// perezosa: las entradas caducadas se tratan como miss y se eliminan en
// la lectura, de modo que el mapa no crece sin límite con mercados que
// dejaron de sincronizar. Un miss obliga al synchronizer a re-encolar
// el mercado, nunca a perder una actualización.

import (
	"context"
	"sync"
	"time"
)

// defaultTTL replica la caducidad del backend Redis.
const defaultTTL = time.Hour

type memoryEntry struct {
	price     float64
	expiresAt time.Time
}

// Memory implementa ports.PriceCache sobre un mapa protegido por mutex.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory crea la caché con el TTL indicado; ttl <= 0 usa una hora.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get devuelve el último precio cacheado del mercado. El segundo valor es
// false si no hay entrada o está caducada; las caducadas se borran aquí.
func (m *Memory) Get(_ context.Context, marketID string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[marketID]
	if !ok {
		return 0, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, marketID)
		return 0, false, nil
	}
	return entry.price, true, nil
}

// Put guarda el precio YES del mercado renovando el TTL.
func (m *Memory) Put(_ context.Context, marketID string, yesPrice float64) error {
	m.mu.Lock()
	m.entries[marketID] = memoryEntry{
		price:     yesPrice,
		expiresAt: m.now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}
