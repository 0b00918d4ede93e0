package cache

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/resilience"
)

// breakerStore fails fast while the backing store keeps erroring, so a
// Redis outage costs queries nothing but a miss. Misses are not failures.
type breakerStore struct {
	Store
	cb *resilience.CircuitBreaker
}

func WithBreaker(s Store, cb *resilience.CircuitBreaker) Store {
	return &breakerStore{Store: s, cb: cb}
}

func (b *breakerStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	miss := false
	err := b.cb.Execute(func() error {
		v, err := b.Store.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			miss = true
			return nil
		}
		val = v
		return err
	})
	if err == nil && miss {
		return "", pkgredis.ErrMiss
	}
	return val, err
}

func (b *breakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.cb.Execute(func() error {
		return b.Store.Set(ctx, key, value, ttl)
	})
}
