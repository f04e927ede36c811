package syncer

// concurrent.go — worker pool acotado para el procesado por-mercado del tick.
//
// El diseño anterior lanzaba todos los mercados en paralelo sin límite, y
// los fetches de fallback por-item podían saturar el rate limit del feed.
// El pool acota la concurrencia al tamaño configurado.

import (
	"context"
	"runtime"
	"sync"

	"github.com/Jock20242024/yesno-sub001/internal/domain"
)

// processMarketsConcurrent ejecuta process sobre cada mercado con un pool
// de workers acotado y devuelve todos los resultados (el orden no importa,
// los buckets se agregan después).
func processMarketsConcurrent(
	ctx context.Context,
	markets []domain.MarketInstance,
	workers int,
	process func(ctx context.Context, m domain.MarketInstance) marketResult,
) []marketResult {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(markets) {
		workers = len(markets)
	}

	workCh := make(chan domain.MarketInstance, len(markets))
	resultCh := make(chan marketResult, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				resultCh <- process(ctx, m)
			}
		}()
	}

	for _, m := range markets {
		workCh <- m
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]marketResult, 0, len(markets))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}
