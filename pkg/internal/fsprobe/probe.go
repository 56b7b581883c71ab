// Package fsprobe 抽象文件系统探测：stat、列目录、复制.
// 本地路径、file:// 与 s3://bucket/key 由 Mux 按 scheme 分派.
package fsprobe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedScheme 没有探测器能处理该 URI.
var ErrUnsupportedScheme = errors.New("unsupported uri scheme")

// Info stat 结果，文件不存在时 Exists=false 且不返回错误.
type Info struct {
	Exists  bool
	Size    int64
	ModTime time.Time // 零值表示未知
	IsDir   bool
}

// Probe 文件系统探测接口.
type Probe interface {
	Stat(ctx context.Context, uri string) (Info, error)
	// ListDirectory 列出目录下的条目名（不递归，不含子目录）.
	ListDirectory(ctx context.Context, dir string) ([]string, error)
	// Copy 把 from 复制到本地路径 to.
	Copy(ctx context.Context, from, to string) error
}

// Join 在目录 URI 下拼接条目名，保持原有 scheme.
func Join(dir, name string) string {
	if u, ok := parseRemote(dir); ok {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + name
		return u.String()
	}

	return filepath.Join(LocalPath(dir), name)
}

// Base 返回 URI 的文件名部分.
func Base(uri string) string {
	if u, ok := parseRemote(uri); ok {
		return filepath.Base(u.Path)
	}

	return filepath.Base(LocalPath(uri))
}

// IsLocal 判断 URI 是否指向本地文件.
func IsLocal(uri string) bool {
	_, remote := parseRemote(uri)
	return !remote
}

// LocalPath 去掉 file:// 前缀.
func LocalPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return u.Path
		}

		return strings.TrimPrefix(uri, "file://")
	}

	return uri
}

// parseRemote 解析非本地 URI（如 s3://）.
func parseRemote(uri string) (*url.URL, bool) {
	idx := strings.Index(uri, "://")
	if idx <= 0 || strings.HasPrefix(uri, "file://") {
		return nil, false
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return nil, false
	}

	return u, true
}

func scheme(uri string) string {
	if u, ok := parseRemote(uri); ok {
		return u.Scheme
	}

	return "file"
}

// Mux 按 scheme 把调用分派给不同的 Probe.
type Mux struct {
	probes map[string]Probe
}

// NewMux 创建只包含本地探测器的 Mux.
func NewMux(local Probe) *Mux {
	return &Mux{probes: map[string]Probe{"file": local}}
}

// Register 注册 scheme 对应的探测器.
func (m *Mux) Register(scheme string, p Probe) *Mux {
	m.probes[scheme] = p
	return m
}

func (m *Mux) route(uri string) (Probe, error) {
	s := scheme(uri)

	p, ok := m.probes[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, s)
	}

	return p, nil
}

func (m *Mux) Stat(ctx context.Context, uri string) (Info, error) {
	p, err := m.route(uri)
	if err != nil {
		return Info{}, err
	}

	return p.Stat(ctx, uri)
}

func (m *Mux) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	p, err := m.route(dir)
	if err != nil {
		return nil, err
	}

	return p.ListDirectory(ctx, dir)
}

// Copy 由源 URI 的 scheme 决定使用哪个探测器.
func (m *Mux) Copy(ctx context.Context, from, to string) error {
	p, err := m.route(from)
	if err != nil {
		return err
	}

	return p.Copy(ctx, from, to)
}
