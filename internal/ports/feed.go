package ports

import (
	"context"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// FeedClient es la abstracción sobre el proveedor remoto de datos de
// mercado (listados, detalle de series, items individuales).
type FeedClient interface {
	// ListSeries devuelve todos los descriptores de series recurrentes.
	ListSeries(ctx context.Context) ([]domain.SeriesDescriptor, error)

	// GetSeriesDetail devuelve los listings individuales de una serie.
	GetSeriesDetail(ctx context.Context, seriesID string) ([]domain.Listing, error)

	// ListOpenListings devuelve el snapshot bulk de listings abiertos.
	ListOpenListings(ctx context.Context) ([]domain.Listing, error)

	// ListAllListings devuelve el snapshot bulk sin filtrar por abiertos.
	// Necesario porque la contrapartida remota de un mercado de factory
	// puede no estar abierta públicamente todavía.
	ListAllListings(ctx context.Context) ([]domain.Listing, error)

	// GetListing devuelve un listing individual por id.
	GetListing(ctx context.Context, id string) (domain.Listing, error)
}
