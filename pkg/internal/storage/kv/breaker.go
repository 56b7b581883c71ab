package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/docshelf/pkg/configs"
)

// BreakerKV 在远程 KV 外层包裹熔断器，后端不可用时快速失败.
type BreakerKV struct {
	next KVStore
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker 用 gobreaker 包装 KVStore.
func WithBreaker(next KVStore, name string, cfg configs.CircuitBreakerConfig) *BreakerKV {
	settings := gobreaker.Settings{
		Name:        "kv-" + name,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.Requests
			if total < cfg.MinRequests {
				return false
			}
			// 失败比例
			failureRate := float64(counts.TotalFailures) / float64(total)

			return failureRate >= cfg.FailureRate
		},
		// 键不存在是正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound)
		},
	}

	return &BreakerKV{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State 返回熔断器当前状态.
func (b *BreakerKV) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	data, _ := v.([]byte)

	return data, nil
}

func (b *BreakerKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})

	return err
}

func (b *BreakerKV) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, key)
	})

	return err
}

func (b *BreakerKV) Exists(ctx context.Context, key string) (bool, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Exists(ctx, key)
	})
	if err != nil {
		return false, err
	}

	ok, _ := v.(bool)

	return ok, nil
}

func (b *BreakerKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Keys(ctx, pattern)
	})
	if err != nil {
		return nil, err
	}

	keys, _ := v.([]string)

	return keys, nil
}

func (b *BreakerKV) Close() error {
	return b.next.Close()
}
