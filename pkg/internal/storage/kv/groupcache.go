package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/docshelf/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
// groupcache 不支持失效，每次写入都会生成新的版本号，读取时以 key#version 访问缓存.
type GroupcacheKV struct {
	cache *groupcache.Group    // Groupcache 缓存组
	peers *groupcache.HTTPPool // 对等节点池
	data  map[string]gcEntry   // 本地存储数据
	seq   uint64               // 写入版本号
	mu    sync.RWMutex         // 保护 data 与 seq
}

type gcEntry struct {
	value   []byte
	version uint64
}

// groupSeq 同名组重复创建时的后缀.
var groupSeq atomic.Uint64

// groupcacheGetter 实现 groupcache.Getter 接口.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, versioned string, dest groupcache.Sink) error {
	key, version := splitVersioned(versioned)

	g.kv.mu.RLock()
	entry, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists || entry.version != version {
		return notFound(key)
	}

	if err := dest.SetBytes(entry.value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	kv := &GroupcacheKV{
		data: make(map[string]gcEntry),
	}

	// 组名在进程内必须唯一
	name := gcConfig.Name
	if groupcache.GetGroup(name) != nil {
		name = name + "-" + strconv.FormatUint(groupSeq.Add(1), 10)
	}

	kv.cache = groupcache.NewGroup(name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	// 如果有对等节点，设置 HTTP 池
	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	return kv, nil
}

func versionedKey(key string, version uint64) string {
	return key + "#" + strconv.FormatUint(version, 10)
}

func splitVersioned(versioned string) (string, uint64) {
	idx := strings.LastIndex(versioned, "#")
	if idx < 0 {
		return versioned, 0
	}

	version, err := strconv.ParseUint(versioned[idx+1:], 10, 64)
	if err != nil {
		return versioned, 0
	}

	return versioned[:idx], version
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	entry, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return nil, notFound(key)
	}

	var data []byte

	err := g.cache.Get(ctx, versionedKey(key, entry.version), groupcache.AllocatingByteSliceSink(&data))
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return cloneBytes(data), nil
}

// Set 设置键的值，groupcache 不支持 TTL，忽略过期时间.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.data[key] = gcEntry{value: cloneBytes(value), version: g.seq}

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(_ context.Context, key string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.data[key]

	return exists, nil
}

// Keys 获取匹配模式的键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchKey(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
