// Package kv 提供用于键值存储的接口和实现.
// 文件清单、收藏列表与授权记录都以 JSON 数组/对象的形式保存在固定的键下.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/storage/db"
)

// ErrKeyNotFound 键不存在（或已过期）.
var ErrKeyNotFound = errors.New("key not found")

type Client struct {
	KVStore

	Type KVType
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，键不存在时返回 ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，可选过期时间.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 获取匹配 glob 模式的键，空模式返回全部.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeSQL        KVType = "sql"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

var (
	// kvFactories 存储 KV 类型到工厂的映射.
	kvFactories = make(map[KVType]KVFactory)
	factoriesMu sync.RWMutex
)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表（已排序）.
func GetRegisteredKVTypes() []KVType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factoriesMu.RLock()
	factory, exists := kvFactories[kvType]
	factoriesMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// NewKVClient 根据应用配置创建 KV 客户端，远程类型按配置包裹熔断器.
func NewKVClient(ctx context.Context, cfg *configs.AppConfig) (*Client, error) {
	kvType := KVType(cfg.KV.GetKVType())

	store, err := NewKVStore(ctx, kvType, factoryConfig(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.KV.IsRemote() && cfg.CircuitBreaker.Enabled {
		store = WithBreaker(store, string(kvType), cfg.CircuitBreaker)
	}

	return &Client{KVStore: store, Type: kvType}, nil
}

// factoryConfig 选出每种 KV 工厂需要的配置.
func factoryConfig(cfg *configs.AppConfig) any {
	switch KVType(cfg.KV.GetKVType()) {
	case KVTypeSQL:
		return &db.Options{DB: cfg.DB, App: cfg.App, Metrics: cfg.Metrics.Enabled}
	case KVTypeRedis:
		return &cfg.KV.Redis
	case KVTypeNATS:
		return &cfg.KV.NATS
	case KVTypeGroupcache:
		return &cfg.KV.Groupcache
	default:
		return nil
	}
}

// notFound 包装 ErrKeyNotFound 并带上键名.
func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// matchKey 以 glob 规则匹配键，空模式匹配全部.
func matchKey(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	ok, err := path.Match(pattern, key)
	if err != nil {
		return pattern == key
	}

	return ok
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
