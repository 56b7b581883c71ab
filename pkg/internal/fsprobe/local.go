package fsprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local 基于 os 的本地文件探测器.
type Local struct{}

// NewLocal 创建本地探测器.
func NewLocal() *Local {
	return &Local{}
}

func (Local) Stat(_ context.Context, uri string) (Info, error) {
	fi, err := os.Stat(LocalPath(uri))
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil
	}

	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", uri, err)
	}

	return Info{Exists: true, Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (Local) ListDirectory(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(LocalPath(dir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		names = append(names, e.Name())
	}

	return names, nil
}

// Copy 复制到临时文件后重命名，目标目录不存在时创建.
func (Local) Copy(ctx context.Context, from, to string) error {
	src, err := os.Open(LocalPath(from))
	if err != nil {
		return fmt.Errorf("open %s: %w", from, err)
	}
	defer src.Close()

	return writeAtomic(ctx, to, src)
}

// writeAtomic 把 r 写入 to 所在目录的临时文件，成功后重命名.
func writeAtomic(ctx context.Context, to string, r io.Reader) error {
	dst := LocalPath(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".docshelf-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy to %s: %w", to, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}

// ctxReader 在 ctx 取消后停止读取.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
