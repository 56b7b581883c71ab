package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000)
}

func TestScanFiltersAndBuildsRecords(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.pdf", 10)
	writeFile(t, dir, "Budget.XLSX", 20)
	writeFile(t, dir, "empty.pdf", 0)
	writeFile(t, dir, "notes.txt", 5)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	s := scanner.New(fsprobe.NewLocal(), scanner.WithClock(fixedClock))
	res := s.Scan(context.Background(), []scanner.Source{{Path: dir, Label: "Documents"}})

	require.Empty(t, res.Failures)
	require.Len(t, res.Records, 2)

	byName := map[string]int64{}
	for _, r := range res.Records {
		byName[r.Name] = r.Size
		assert.Equal(t, filepath.Join(dir, r.Name), r.URI)
		assert.Equal(t, "Documents_"+r.Name+"_1700000000000", r.ID)
		assert.False(t, r.LastModified.IsZero())
	}

	assert.Equal(t, map[string]int64{"report.pdf": 10, "Budget.XLSX": 20}, byName)
}

func TestScanSkipsFailingDirectory(t *testing.T) {
	good := t.TempDir()
	writeFile(t, good, "a.pdf", 3)

	missing := filepath.Join(t.TempDir(), "does-not-exist")

	s := scanner.New(fsprobe.NewLocal(), scanner.WithClock(fixedClock))
	res := s.Scan(context.Background(), []scanner.Source{
		{Path: good, Label: "A"},
		{Path: missing, Label: "B"},
	})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "a.pdf", res.Records[0].Name)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, missing, res.Failures[0].Path)
	assert.Error(t, res.Failures[0].Err)
}

func TestScanKeepsSourceOrder(t *testing.T) {
	first, second, third := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, first, "one.pdf", 1)
	writeFile(t, second, "two.pdf", 1)
	writeFile(t, third, "three.pdf", 1)

	s := scanner.New(fsprobe.NewLocal(), scanner.WithWorkers(3))
	res := s.Scan(context.Background(), []scanner.Source{
		{Path: first, Label: "1"},
		{Path: second, Label: "2"},
		{Path: third, Label: "3"},
	})

	require.Len(t, res.Records, 3)
	assert.Equal(t, "one.pdf", res.Records[0].Name)
	assert.Equal(t, "two.pdf", res.Records[1].Name)
	assert.Equal(t, "three.pdf", res.Records[2].Name)
}

func TestScanDoesNotDeduplicate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "same.pdf", 1)

	s := scanner.New(fsprobe.NewLocal(), scanner.WithClock(fixedClock))
	res := s.Scan(context.Background(), []scanner.Source{
		{Path: dir, Label: "X"},
		{Path: dir, Label: "X"},
	})

	require.Len(t, res.Records, 2)
	assert.Equal(t, res.Records[0].ID, res.Records[1].ID)
}

func TestPathIDSchemeIsStable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", 1)

	src := []scanner.Source{{Path: dir, Label: "D"}}
	ctx := context.Background()

	first := scanner.New(fsprobe.NewLocal(), scanner.WithIDScheme(configs.IDSchemePath)).Scan(ctx, src)
	second := scanner.New(fsprobe.NewLocal(), scanner.WithIDScheme(configs.IDSchemePath),
		scanner.WithClock(func() time.Time { return time.Now().Add(time.Hour) })).Scan(ctx, src)

	require.Len(t, first.Records, 1)
	require.Len(t, second.Records, 1)
	assert.Equal(t, first.Records[0].ID, second.Records[0].ID)
}

func TestCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", 1)
	writeFile(t, dir, "b.xls", 1)

	s := scanner.New(fsprobe.NewLocal(), scanner.WithExtensions("xls"))
	res := s.Scan(context.Background(), []scanner.Source{{Path: dir, Label: "D"}})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "b.xls", res.Records[0].Name)
}
