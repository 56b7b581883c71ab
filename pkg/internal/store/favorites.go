package store

import (
	"context"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
)

// Favorites 收藏的文件，与文件清单相互独立.
type Favorites struct {
	*collection
}

// NewFavorites 创建收藏集合，调用 Load 之前为空.
func NewFavorites(store kv.KVStore, key string) *Favorites {
	return &Favorites{collection: newCollection("favorites", key, store)}
}

// IsFavorite 是否已收藏.
func (f *Favorites) IsFavorite(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.has(id)
}

// Add 追加到末尾并写回；已存在时返回 false 且不做任何修改.
func (f *Favorites) Add(ctx context.Context, record model.FileRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.has(record.ID) {
		return false, nil
	}

	f.records = append(f.records, record)

	return true, f.persist(ctx)
}
