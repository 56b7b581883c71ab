package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/docshelf/pkg/internal/storage/db"
)

// kvEntry 对应 docshelf_kv 表的一行.
type kvEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;size:255"`
	Value     []byte `gorm:"column:kv_value"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "docshelf_kv"
}

// SQLKV 基于 GORM 的持久化 KV，默认落在数据目录下的 SQLite 文件中.
type SQLKV struct {
	client *db.Client
}

// NewSQLKV 创建 SQL KV 实例并迁移表结构.
func NewSQLKV(ctx context.Context, config any) (KVStore, error) {
	opts, ok := config.(*db.Options)
	if !ok {
		return nil, fmt.Errorf("invalid SQL KV config")
	}

	client, err := db.New(ctx, *opts)
	if err != nil {
		return nil, err
	}

	return NewSQLKVWithClient(ctx, client)
}

// NewSQLKVWithClient 在已有连接上创建 SQL KV.
func NewSQLKVWithClient(ctx context.Context, client *db.Client) (*SQLKV, error) {
	if err := client.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv table: %w", err)
	}

	return &SQLKV{client: client}, nil
}

// Get 获取键的值.
func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry

	err := s.client.WithContext(ctx).Where("kv_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, _, err := decodeWithTTL(entry.Value, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = s.Delete(ctx, key)
		return nil, notFound(key)
	}

	return val, nil
}

// Set 设置键的值，存在则覆盖.
func (s *SQLKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	entry := kvEntry{Key: key, Value: encoded, UpdatedAt: time.Now()}

	err = s.client.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (s *SQLKV) Delete(ctx context.Context, key string) error {
	if err := s.client.WithContext(ctx).Where("kv_key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (s *SQLKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	return true, nil
}

// Keys 获取匹配模式的键.
func (s *SQLKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	var all []string
	if err := s.client.WithContext(ctx).Model(&kvEntry{}).Order("kv_key").Pluck("kv_key", &all).Error; err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	keys := make([]string, 0, len(all))

	for _, k := range all {
		if matchKey(pattern, k) {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

// Close 关闭数据库连接.
func (s *SQLKV) Close() error {
	return s.client.Close()
}

func init() {
	RegisterKVFactory(KVTypeSQL, NewSQLKV)
}
