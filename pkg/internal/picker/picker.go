// Package picker 把命令行给出的路径转换为待导入的文件.
package picker

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/model"
	nlog "github.com/yeisme/docshelf/pkg/log"
)

// ErrCancelled 没有选中任何文件.
var ErrCancelled = errors.New("pick cancelled")

// Picked 一个被选中的文件. CopyToCache 开启时 URI 指向缓存目录中的副本.
type Picked struct {
	URI  string
	Name string
	Size int64
}

// Picker 文件选择器.
type Picker struct {
	probe    fsprobe.Probe
	accept   []string
	cacheDir string
	copy     bool
	logger   zerolog.Logger
}

// New 创建选择器.
func New(probe fsprobe.Probe, cfg configs.PickerConfig, cacheDir string) *Picker {
	return &Picker{
		probe:    probe,
		accept:   model.NormalizeExts(cfg.Accept),
		cacheDir: cacheDir,
		copy:     cfg.CopyToCache && cacheDir != "",
		logger:   nlog.Component("picker"),
	}
}

// Pick 过滤不接受的类型，可选地复制到缓存目录. 复制失败的文件被跳过.
// 没有可用文件时返回 ErrCancelled.
func (p *Picker) Pick(ctx context.Context, paths []string) ([]Picked, error) {
	var out []Picked

	for _, raw := range paths {
		uri := raw
		if fsprobe.IsLocal(raw) {
			if abs, err := filepath.Abs(fsprobe.LocalPath(raw)); err == nil {
				uri = abs
			}
		}

		name := fsprobe.Base(uri)
		if !p.accepts(name) {
			p.logger.Info().Str("uri", uri).Msg("skip unsupported type")
			continue
		}

		info, err := p.probe.Stat(ctx, uri)
		if err != nil {
			p.logger.Warn().Err(err).Str("uri", uri).Msg("stat failed")
		}

		if err != nil || !info.Exists || info.IsDir {
			continue
		}

		picked := Picked{URI: uri, Name: name, Size: info.Size}

		if p.copy {
			dst := filepath.Join(p.cacheDir, cacheName(name))
			if err := p.probe.Copy(ctx, uri, dst); err != nil {
				p.logger.Warn().Err(err).Str("uri", uri).Msg("copy to cache failed, skipped")
				continue
			}

			picked.URI = dst
		}

		out = append(out, picked)
	}

	if len(out) == 0 {
		return nil, ErrCancelled
	}

	return out, nil
}

func (p *Picker) accepts(name string) bool {
	if len(p.accept) == 0 {
		return true
	}

	return slices.Contains(p.accept, strings.ToLower(path.Ext(name)))
}

// cacheName 缓存中的文件名加上随机前缀，避免同名覆盖.
func cacheName(name string) string {
	return uuid.NewString()[:8] + "-" + name
}
