// Package store 持有文件清单（Registry）与收藏（Favorites）两个集合.
//
// 每个集合在启动时从 KV 读取一次，之后所有读取都走内存镜像.
// 变更在互斥锁内先更新镜像再整体写回 KV，写入完成后才处理下一次变更.
// 写回失败只记录日志与指标，镜像仍保留本次变更.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
	nlog "github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/metrics"
)

// collection 持久化的有序记录集合，id 唯一.
type collection struct {
	name    string
	key     string
	kv      kv.KVStore
	mu      sync.Mutex
	records []model.FileRecord
	logger  zerolog.Logger
}

func newCollection(name, key string, store kv.KVStore) *collection {
	return &collection{
		name:   name,
		key:    key,
		kv:     store,
		logger: nlog.Component("store").With().Str("store", name).Logger(),
	}
}

// Load 读取持久化集合，键不存在得到空集合，读取或解析失败记录日志后同样为空.
func (c *collection) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, found, err := kv.GetJSON[[]model.FileRecord](ctx, c.kv, c.key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", c.key).Msg("load failed, starting empty")

		records = nil
	}

	c.records = dedupe(records)
	c.updateGauge()

	c.logger.Debug().Bool("found", found).Int("records", len(c.records)).Msg("loaded")
}

// List 返回当前集合的副本（插入顺序即显示顺序）.
func (c *collection) List() []model.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

// Get 按 id 查找.
func (c *collection) Get(id string) (model.FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := model.IndexByID(c.records, id); i >= 0 {
		return c.records[i], true
	}

	return model.FileRecord{}, false
}

// Len 记录数.
func (c *collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.records)
}

// Remove 过滤掉 id 并写回，id 不存在时集合不变（仍写回）.
func (c *collection) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]model.FileRecord, 0, len(c.records))
	for _, r := range c.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}

	removed := len(kept) != len(c.records)
	c.records = kept

	return removed, c.persist(ctx)
}

// persist 整体写回，调用方持有锁.
func (c *collection) persist(ctx context.Context) error {
	c.updateGauge()

	records := c.records
	if records == nil {
		records = []model.FileRecord{}
	}

	if err := kv.SetJSON(ctx, c.kv, c.key, records, 0); err != nil {
		metrics.PersistFailures.WithLabelValues(c.name).Inc()
		c.logger.Error().Err(err).Str("key", c.key).Msg("persist failed, keeping in-memory state")

		return fmt.Errorf("persist %s: %w", c.name, err)
	}

	return nil
}

func (c *collection) snapshot() []model.FileRecord {
	out := make([]model.FileRecord, len(c.records))
	copy(out, c.records)

	return out
}

func (c *collection) has(id string) bool {
	return model.IndexByID(c.records, id) >= 0
}

func (c *collection) updateGauge() {
	metrics.StoreRecords.WithLabelValues(c.name).Set(float64(len(c.records)))
}

// dedupe 按 id 去重，保留第一次出现.
func dedupe(records []model.FileRecord) []model.FileRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.FileRecord, 0, len(records))

	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}

		seen[r.ID] = struct{}{}
		out = append(out, r)
	}

	return out
}
