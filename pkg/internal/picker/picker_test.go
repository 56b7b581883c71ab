package picker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/picker"
)

func TestPickFiltersByType(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.pdf")
	txt := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pdf, []byte("pdf"), 0o644))
	require.NoError(t, os.WriteFile(txt, []byte("txt"), 0o644))

	p := picker.New(fsprobe.NewLocal(), configs.PickerConfig{Accept: []string{".pdf", ".xlsx"}}, "")

	got, err := p.Pick(context.Background(), []string{pdf, txt, filepath.Join(dir, "missing.pdf")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, picker.Picked{URI: pdf, Name: "a.pdf", Size: 3}, got[0])
}

func TestPickNothingIsCancelled(t *testing.T) {
	p := picker.New(fsprobe.NewLocal(), configs.PickerConfig{Accept: []string{".pdf"}}, "")

	_, err := p.Pick(context.Background(), nil)
	assert.ErrorIs(t, err, picker.ErrCancelled)
}

func TestPickCopiesToCache(t *testing.T) {
	src := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("12345"), 0o644))

	cache := filepath.Join(t.TempDir(), "cache")
	p := picker.New(fsprobe.NewLocal(), configs.PickerConfig{CopyToCache: true, Accept: []string{".xlsx"}}, cache)

	got, err := p.Pick(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "sheet.xlsx", got[0].Name)
	assert.Equal(t, int64(5), got[0].Size)
	assert.Equal(t, cache, filepath.Dir(got[0].URI))
	assert.True(t, strings.HasSuffix(got[0].URI, "-sheet.xlsx"))

	data, err := os.ReadFile(got[0].URI)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))
}

func TestPickAcceptsExtensionsWithoutDot(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.PDF")
	require.NoError(t, os.WriteFile(pdf, []byte("pdf"), 0o644))

	p := picker.New(fsprobe.NewLocal(), configs.PickerConfig{Accept: []string{"pdf", "XLSX"}}, "")

	got, err := p.Pick(context.Background(), []string{pdf})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.PDF", got[0].Name)
}

// flakyCopy 对指定文件名复制失败，其余交给本地探测器.
type flakyCopy struct {
	*fsprobe.Local
	fail string
}

func (f flakyCopy) Copy(ctx context.Context, from, to string) error {
	if filepath.Base(from) == f.fail {
		return errors.New("disk full")
	}

	return f.Local.Copy(ctx, from, to)
}

func TestPickSkipsFilesThatFailToCopy(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(good, []byte("g"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("b"), 0o644))

	cache := filepath.Join(t.TempDir(), "cache")
	p := picker.New(flakyCopy{Local: fsprobe.NewLocal(), fail: "bad.pdf"},
		configs.PickerConfig{CopyToCache: true, Accept: []string{".pdf"}}, cache)

	got, err := p.Pick(context.Background(), []string{bad, good})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good.pdf", got[0].Name)
	assert.Equal(t, cache, filepath.Dir(got[0].URI))

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = p.Pick(context.Background(), []string{bad})
	assert.ErrorIs(t, err, picker.ErrCancelled)
}
