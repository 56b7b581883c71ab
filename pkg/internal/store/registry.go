package store

import (
	"context"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
)

// Registry 所有已知文件：扫描发现的与手动导入的.
type Registry struct {
	*collection
}

// MergeResult 合并结果.
type MergeResult struct {
	Records []model.FileRecord // 合并后的完整集合
	Added   []model.FileRecord // 本次新增的记录
}

// NewRegistry 创建文件清单，调用 Load 之前为空.
func NewRegistry(store kv.KVStore, key string) *Registry {
	return &Registry{collection: newCollection("registry", key, store)}
}

// Merge 把 id 尚不存在的候选记录按候选顺序追加到末尾并写回.
// 候选列表内部重复的 id 只保留第一次出现.
func (r *Registry) Merge(ctx context.Context, candidates []model.FileRecord) (MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := r.fresh(candidates)
	r.records = append(r.records, added...)

	err := r.persist(ctx)

	return MergeResult{Records: r.snapshot(), Added: added}, err
}

// AddManual 把手动选择的记录放到最前面（保持本批内部顺序）并写回.
func (r *Registry) AddManual(ctx context.Context, records []model.FileRecord) ([]model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := r.fresh(records)
	if len(added) == 0 {
		return nil, nil
	}

	next := make([]model.FileRecord, 0, len(added)+len(r.records))
	next = append(next, added...)
	r.records = append(next, r.records...)

	return added, r.persist(ctx)
}

// fresh 过滤出集合中不存在且批内未重复的记录，调用方持有锁.
func (r *Registry) fresh(candidates []model.FileRecord) []model.FileRecord {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.FileRecord, 0, len(candidates))

	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup || r.has(c.ID) {
			continue
		}

		seen[c.ID] = struct{}{}
		out = append(out, c)
	}

	return out
}
