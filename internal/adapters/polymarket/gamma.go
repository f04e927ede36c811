package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

const (
	seriesPath  = "/series"
	marketsPath = "/markets"

	seriesPageLimit  = 1000
	marketsPageLimit = 1000
)

// ListSeries devuelve todos los descriptores de series recurrentes.
func (c *Client) ListSeries(ctx context.Context) ([]domain.SeriesDescriptor, error) {
	url := fmt.Sprintf("%s%s?limit=%d", c.gammaBase, seriesPath, seriesPageLimit)

	var resp []gammaSeries
	if err := c.get(ctx, c.bulkLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.ListSeries: %w", err)
	}

	series := make([]domain.SeriesDescriptor, 0, len(resp))
	for _, s := range resp {
		if s.ID.String() == "" {
			continue
		}
		series = append(series, domain.SeriesDescriptor{
			ID:         s.ID.String(),
			Title:      s.Title,
			Slug:       s.Slug,
			Recurrence: s.Recurrence,
		})
	}

	slog.Debug("series list fetched", "count", len(series))
	return series, nil
}

// GetSeriesDetail devuelve los listings individuales de una serie.
func (c *Client) GetSeriesDetail(ctx context.Context, seriesID string) ([]domain.Listing, error) {
	url := fmt.Sprintf("%s%s/%s", c.gammaBase, seriesPath, seriesID)

	var resp gammaSeriesDetail
	if err := c.get(ctx, c.singleLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.GetSeriesDetail %s: %w", seriesID, err)
	}

	listings := make([]domain.Listing, 0, len(resp.Events))
	for _, m := range resp.Events {
		listings = append(listings, toListing(m))
	}
	return listings, nil
}

// ListOpenListings devuelve el snapshot bulk de listings abiertos,
// ordenados por volumen descendente.
func (c *Client) ListOpenListings(ctx context.Context) ([]domain.Listing, error) {
	url := fmt.Sprintf("%s%s?closed=false&limit=%d&offset=0&order=volume&ascending=false",
		c.gammaBase, marketsPath, marketsPageLimit)
	return c.listMarkets(ctx, url, "ListOpenListings")
}

// ListAllListings devuelve el snapshot bulk sin filtrar por abiertos.
func (c *Client) ListAllListings(ctx context.Context) ([]domain.Listing, error) {
	url := fmt.Sprintf("%s%s?limit=%d&offset=0&order=volume&ascending=false",
		c.gammaBase, marketsPath, marketsPageLimit)
	return c.listMarkets(ctx, url, "ListAllListings")
}

// GetListing devuelve un listing individual por id.
func (c *Client) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	url := fmt.Sprintf("%s%s/%s", c.gammaBase, marketsPath, id)

	var resp gammaMarket
	if err := c.get(ctx, c.singleLimiter, url, &resp); err != nil {
		return domain.Listing{}, fmt.Errorf("polymarket.GetListing %s: %w", id, err)
	}
	return toListing(resp), nil
}

func (c *Client) listMarkets(ctx context.Context, url, op string) ([]domain.Listing, error) {
	var resp []gammaMarket
	if err := c.get(ctx, c.bulkLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.%s: %w", op, err)
	}

	listings := make([]domain.Listing, 0, len(resp))
	for _, m := range resp {
		if m.ID.String() == "" {
			continue
		}
		listings = append(listings, toListing(m))
	}
	return listings, nil
}

// toListing mapea el DTO raw a la entidad de dominio. El vector de precios
// se busca primero plano y, si no está, anidado un nivel bajo
// events[0].markets[0] — las dos formas que expone la API.
func toListing(m gammaMarket) domain.Listing {
	title := m.Title
	if title == "" {
		title = m.Question
	}
	if title == "" {
		title = m.Slug
	}

	raw := string(m.OutcomePrices)
	if raw == "" && len(m.Events) > 0 && len(m.Events[0].Markets) > 0 {
		raw = string(m.Events[0].Markets[0].OutcomePrices)
	}

	active := true
	if m.Active != nil {
		active = *m.Active
	}

	return domain.Listing{
		ID:               m.ID.String(),
		Title:            title,
		RawOutcomePrices: raw,
		Active:           active,
		Closed:           m.Closed,
	}
}
