package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// GetJSON 读取并反序列化 JSON 值，键不存在时返回 (zero, false, nil).
func GetJSON[T any](ctx context.Context, store KVStore, key string) (T, bool, error) {
	var zero T

	data, err := store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, err
	}

	var out T
	if err := sonic.Unmarshal(data, &out); err != nil {
		return zero, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return out, true, nil
}

// SetJSON 序列化为 JSON 后写入.
func SetJSON[T any](ctx context.Context, store KVStore, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	return store.Set(ctx, key, data, ttl)
}
