package ports

import "context"

// PriceCache es la cache efímera marketId → último precio YES conocido,
// usada solo para computar deltas. Se sobreescribe monotónicamente y puede
// perderse sin violar corrección: reconstruirla solo cuesta un ciclo extra
// de escrituras.
type PriceCache interface {
	// Get devuelve el último precio cacheado y si existía.
	Get(ctx context.Context, marketID string) (float64, bool, error)

	// Put sobreescribe el precio cacheado del mercado.
	Put(ctx context.Context, marketID string, yesPrice float64) error
}
