// Package storage 聚合 docshelf 使用的存储资源：KV（文件清单/收藏/授权）、消息队列与可选的 S3.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	files, err := mgr.KV.Get(ctx, cfg.KV.RegistryKey)
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/docshelf/pkg/configs"
	kvc "github.com/yeisme/docshelf/pkg/internal/storage/kv"
	mqc "github.com/yeisme/docshelf/pkg/internal/storage/mq"
	s3c "github.com/yeisme/docshelf/pkg/internal/storage/s3"
	nlog "github.com/yeisme/docshelf/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	KV *kvc.Client
	MQ *mqc.Client
	S3 *s3c.Client // s3.enabled=false 时为 nil
}

// Init 按配置初始化存储资源，任一资源失败时关闭已打开的部分.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	kvClient, err := kvc.NewKVClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init kv (%s): %w", cfg.KV.Type, err)
	}

	m.KV = kvClient

	if cfg.Events.Enabled {
		mqClient, err := mqc.New(ctx, cfg.MQ, cfg.Metrics.Enabled)
		if err != nil {
			_ = m.Close()
			return nil, err
		}

		m.MQ = mqClient
	}

	if cfg.S3.Enabled {
		s3Client, err := s3c.New(ctx, cfg.S3)
		if err != nil {
			_ = m.Close()
			return nil, err
		}

		m.S3 = s3Client
	}

	nlog.Logger().Debug().
		Str("kv", cfg.KV.Type).
		Bool("events", m.MQ != nil).
		Bool("s3", m.S3 != nil).
		Msg("storage manager initialized")

	return m, nil
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// Close 释放所有资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	return errors.Join(errs...)
}
