package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docshelf/pkg/configs"
)

// Publisher 发布事件所需的最小接口，mq.Client 满足该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Emitter 按配置开关发布领域事件，pub 为 nil 时所有方法都是空操作.
type Emitter struct {
	pub Publisher
	cfg configs.EventsConfig
}

// NewEmitter 创建事件发布器.
func NewEmitter(pub Publisher, cfg configs.EventsConfig) *Emitter {
	return &Emitter{pub: pub, cfg: cfg}
}

func (e *Emitter) enabled(pick func(configs.EventsConfig) bool) bool {
	return e != nil && e.pub != nil && e.cfg.Enabled && pick(e.cfg)
}

// traceIDFrom 取当前 span 的 TraceID，未启用追踪时为空.
func traceIDFrom(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}

func emit[T any](ctx context.Context, e *Emitter, topic string, payload T) error {
	opts := []func(*EventHeader){WithProducer(e.cfg.Producer)}
	if traceID := traceIDFrom(ctx); traceID != "" {
		opts = append(opts, WithTraceID(traceID))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return e.pub.Publish(ctx, topic, msg)
}

// RegistryAdded 发布 registry.added，空列表不发布.
func (e *Emitter) RegistryAdded(ctx context.Context, payload RegistryAddedPayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Registry.Added }) || len(payload.Records) == 0 {
		return nil
	}

	return emit(ctx, e, TopicRegistryAdded, payload)
}

// RecordRemoved 发布 registry.removed.
func (e *Emitter) RecordRemoved(ctx context.Context, payload RegistryRemovedPayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Registry.Removed }) {
		return nil
	}

	return emit(ctx, e, TopicRegistryRemoved, payload)
}

// RecordMissing 发布 registry.missing.
func (e *Emitter) RecordMissing(ctx context.Context, payload RegistryRemovedPayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Registry.Missing }) {
		return nil
	}

	return emit(ctx, e, TopicRegistryMissing, payload)
}

// FavoriteAdded 发布 favorites.added.
func (e *Emitter) FavoriteAdded(ctx context.Context, payload FavoritePayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Favorites.Added }) {
		return nil
	}

	return emit(ctx, e, TopicFavoriteAdded, payload)
}

// FavoriteRemoved 发布 favorites.removed.
func (e *Emitter) FavoriteRemoved(ctx context.Context, payload FavoritePayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Favorites.Removed }) {
		return nil
	}

	return emit(ctx, e, TopicFavoriteRemoved, payload)
}

// ScanCompleted 发布 scan.completed.
func (e *Emitter) ScanCompleted(ctx context.Context, payload ScanCompletedPayload) error {
	if !e.enabled(func(c configs.EventsConfig) bool { return c.Scan }) {
		return nil
	}

	return emit(ctx, e, TopicScanCompleted, payload)
}
