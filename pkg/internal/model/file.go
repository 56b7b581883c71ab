// Package model 定义文件清单与收藏共用的数据结构.
package model

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// FileRecord 一个已知文档文件，创建后不再修改，存储整体替换集合.
type FileRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"` // 含扩展名
	// URI 本地路径、file:// URI 或 s3://bucket/key
	URI          string    `json:"uri"`
	Size         int64     `json:"size"` // 未知时为 0
	LastModified time.Time `json:"lastModified"`
}

// Kind 文档类型，由文件名后缀推导，不持久化.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindOther       Kind = "other"
)

// KindOf 按后缀（不区分大小写）判断文档类型.
func KindOf(name string) Kind {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".xlsx":
		return KindSpreadsheet
	default:
		return KindOther
	}
}

// Kind 返回记录的文档类型.
func (r FileRecord) Kind() Kind {
	return KindOf(r.Name)
}

// Ext 返回小写扩展名（不含点），用于列表中的类型统计.
func (r FileRecord) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(r.Name)), ".")
}

// HumanSize 以 1024 进制显示大小，未知时显示 "-".
func (r FileRecord) HumanSize() string {
	return FormatSize(r.Size)
}

// FormatSize 格式化字节数.
func FormatSize(size int64) string {
	if size <= 0 {
		return "-"
	}

	return humanize.IBytes(uint64(size))
}

// NormalizeExts 扩展名统一为小写并带前导点，空项丢弃.
func NormalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}

		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}

		out = append(out, e)
	}

	return out
}

// NewScanID 扫描得到的记录标识：<label>_<name>_<毫秒时间戳>.
func NewScanID(label, name string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", label, name, at.UnixMilli())
}

// NewPathID 稳定标识：<label>_<uri 的 xxhash64>，同一文件重复扫描得到同一标识.
func NewPathID(label, uri string) string {
	return fmt.Sprintf("%s_%016x", label, xxhash.Sum64String(uri))
}

// NewManualID 手动导入的记录标识：manual_<name>_<毫秒时间戳>_<随机串>.
func NewManualID(name string, at time.Time) string {
	return fmt.Sprintf("manual_%s_%d_%s", name, at.UnixMilli(), uuid.NewString())
}

// IndexByID 返回 id 所在下标，不存在返回 -1.
func IndexByID(records []FileRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}

	return -1
}

// CountByExt 统计每种扩展名的数量.
func CountByExt(records []FileRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Ext()]++
	}

	return counts
}
