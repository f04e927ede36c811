package pricecache

// redis.go — backend Redis compartible entre réplicas del daemon.
//
// Una key por mercado ("odds:price:<marketId>") con TTL renovado en cada
// escritura. Cualquier error de red se propaga al caller, que lo trata
// como miss para no frenar el ciclo de sincronización.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "odds:price:"

// Redis implementa ports.PriceCache sobre go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis conecta al servidor indicado y comprueba la conexión con un
// PING antes de devolver el cliente.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pricecache.NewRedis: ping %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Get devuelve el precio cacheado; una key ausente es miss, no error.
func (r *Redis) Get(ctx context.Context, marketID string) (float64, bool, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+marketID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pricecache.Get: %s: %w", marketID, err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		// Entrada corrupta: se trata como miss para que se re-escriba.
		return 0, false, nil
	}
	return price, true, nil
}

// Put guarda el precio renovando el TTL de la key.
func (r *Redis) Put(ctx context.Context, marketID string, yesPrice float64) error {
	key := redisKeyPrefix + marketID
	val := strconv.FormatFloat(yesPrice, 'f', -1, 64)
	if err := r.client.Set(ctx, key, val, r.ttl).Err(); err != nil {
		return fmt.Errorf("pricecache.Put: %s: %w", marketID, err)
	}
	return nil
}

// Close cierra la conexión con Redis.
func (r *Redis) Close() error {
	return r.client.Close()
}
