package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/internal/model"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want model.Kind
	}{
		{"report.pdf", model.KindPDF},
		{"REPORT.PDF", model.KindPDF},
		{"budget.xlsx", model.KindSpreadsheet},
		{"BUDGET.XLSX", model.KindSpreadsheet},
		{"legacy.xls", model.KindOther},
		{"notes.txt", model.KindOther},
		{"noext", model.KindOther},
		{"archive.pdf.zip", model.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.KindOf(tt.name))
		})
	}
}

func TestIDSchemes(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "Documents_a.pdf_1700000000123", model.NewScanID("Documents", "a.pdf", at))

	manual := model.NewManualID("b.xlsx", at)
	assert.True(t, strings.HasPrefix(manual, "manual_b.xlsx_1700000000123_"))
	assert.NotEqual(t, manual, model.NewManualID("b.xlsx", at))

	p1 := model.NewPathID("Cache", "/tmp/cache/a.pdf")
	assert.Equal(t, p1, model.NewPathID("Cache", "/tmp/cache/a.pdf"))
	assert.NotEqual(t, p1, model.NewPathID("Cache", "/tmp/cache/b.pdf"))
	assert.True(t, strings.HasPrefix(p1, "Cache_"))
}

func TestRecordJSONLayout(t *testing.T) {
	rec := model.FileRecord{
		ID:           "x",
		Name:         "a.pdf",
		URI:          "/docs/a.pdf",
		Size:         10,
		LastModified: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal([]model.FileRecord{rec})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"x","name":"a.pdf","uri":"/docs/a.pdf","size":10,"lastModified":"2024-05-01T12:00:00Z"}]`, string(data))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "-", model.FormatSize(0))
	assert.Equal(t, "512 B", model.FormatSize(512))
	assert.Equal(t, "1.5 KiB", model.FormatSize(1536))
}

func TestCountByExt(t *testing.T) {
	counts := model.CountByExt([]model.FileRecord{{Name: "a.pdf"}, {Name: "b.PDF"}, {Name: "c.xlsx"}})
	assert.Equal(t, map[string]int{"pdf": 2, "xlsx": 1}, counts)
	assert.Equal(t, 1, model.IndexByID([]model.FileRecord{{ID: "a"}, {ID: "b"}}, "b"))
	assert.Equal(t, -1, model.IndexByID(nil, "b"))
}

func TestNormalizeExts(t *testing.T) {
	assert.Equal(t, []string{".pdf", ".xlsx", ".pdf"}, model.NormalizeExts([]string{"PDF", " .XLSX ", "", ".pdf"}))
	assert.Empty(t, model.NormalizeExts(nil))
}
