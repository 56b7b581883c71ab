package queue

import (
	"time"

	"github.com/yeisme/docshelf/pkg/internal/model"
)

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 关联的追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// RecordRef 事件中引用的文件记录.
type RecordRef struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	URI  string     `json:"uri"`
	Size int64      `json:"size,omitempty"`
	Kind model.Kind `json:"kind"`
}

// RefOf 由记录生成引用.
func RefOf(r model.FileRecord) RecordRef {
	return RecordRef{ID: r.ID, Name: r.Name, URI: r.URI, Size: r.Size, Kind: r.Kind()}
}

// RefsOf 批量生成引用.
func RefsOf(records []model.FileRecord) []RecordRef {
	refs := make([]RecordRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, RefOf(r))
	}

	return refs
}

// 记录来源.
const (
	OriginScan   = "scan"
	OriginImport = "import"
)

// RegistryAddedPayload 新增到文件清单的记录.
type RegistryAddedPayload struct {
	Origin  string      `json:"origin"`
	Records []RecordRef `json:"records"`
}

// RegistryRemovedPayload 从文件清单或收藏移除的记录.
type RegistryRemovedPayload struct {
	Scope  string    `json:"scope"` // registry | favorites
	Record RecordRef `json:"record"`
}

// FavoritePayload 收藏变更.
type FavoritePayload struct {
	Record RecordRef `json:"record"`
}

// ScanFailure 扫描失败的目录.
type ScanFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanCompletedPayload 一次扫描的汇总.
type ScanCompletedPayload struct {
	RunID    string        `json:"run_id"`
	Trigger  string        `json:"trigger"` // cli | cron | fsnotify | startup
	Found    int           `json:"found"`
	Added    int           `json:"added"`
	Total    int           `json:"total"`
	Failures []ScanFailure `json:"failures,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
