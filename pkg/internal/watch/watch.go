// Package watch 实现常驻模式：定时重扫、目录变化触发重扫、事件日志与指标暴露.
package watch

import (
	"context"
	"errors"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/jobs"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/internal/service"
	nlog "github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/metrics"
	"github.com/yeisme/docshelf/pkg/queue"
	"github.com/yeisme/docshelf/pkg/scheduler"
)

// EventBus 事件订阅，*mq.Client 满足该接口.
type EventBus interface {
	Handle(name, topic string, fn message.NoPublishHandlerFunc)
	Run(ctx context.Context) error
}

// Options 常驻模式参数.
type Options struct {
	Sources    []scanner.Source
	Extensions []string
	Watch      configs.WatchConfig
	Metrics    configs.MetricsConfig
}

// Watcher 常驻模式的主循环.
type Watcher struct {
	lib     jobs.Scanner
	sched   *scheduler.Scheduler
	bus     EventBus
	opts    Options
	limiter *rate.Limiter
	pending chan struct{}
	logger  zerolog.Logger
}

// New 创建 Watcher，sched 或 bus 为 nil 时跳过对应功能.
func New(lib jobs.Scanner, sched *scheduler.Scheduler, bus EventBus, opts Options) *Watcher {
	perSecond := opts.Watch.RescansPerMinute / 60
	if perSecond <= 0 {
		perSecond = configs.DefaultWatchRescansPerMinute / 60
	}

	burst := max(opts.Watch.Burst, 1)

	return &Watcher{
		lib:     lib,
		sched:   sched,
		bus:     bus,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		pending: make(chan struct{}, 1),
		logger:  nlog.Component("watch"),
	}
}

// Run 阻塞直到 ctx 取消.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.lib.Scan(ctx, service.TriggerStartup); err != nil {
		w.logger.Warn().Err(err).Msg("initial scan failed")
	}

	if w.sched != nil {
		if err := jobs.RegisterCronJobs(ctx, w.sched, w.lib, w.opts.Watch.RescanCron); err != nil {
			return err
		}

		w.sched.Start()

		defer func() {
			if err := w.sched.Shutdown(); err != nil {
				w.logger.Warn().Err(err).Msg("scheduler shutdown")
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	if w.bus != nil {
		w.subscribeEvents()
		g.Go(func() error { return w.bus.Run(gctx) })
	}

	if w.opts.Watch.FSNotify {
		fsw, err := w.newFSWatcher()
		if err != nil {
			return err
		}

		defer fsw.Close()

		g.Go(func() error { return w.watchLoop(gctx, fsw) })
		g.Go(func() error { return w.rescanLoop(gctx) })
	}

	g.Go(func() error { return metrics.Serve(gctx, w.opts.Metrics) })

	w.logger.Info().
		Str("cron", w.opts.Watch.RescanCron).
		Bool("fsnotify", w.opts.Watch.FSNotify).
		Bool("metrics", w.opts.Metrics.Enabled).
		Msg("watching")

	<-gctx.Done()

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// Trigger 请求一次重扫，已有待处理请求时合并.
func (w *Watcher) Trigger() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) newFSWatcher() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, src := range w.opts.Sources {
		if !fsprobe.IsLocal(src.Path) {
			continue
		}

		if err := fsw.Add(fsprobe.LocalPath(src.Path)); err != nil {
			w.logger.Warn().Err(err).Str("dir", src.Path).Msg("cannot watch directory")
			continue
		}

		w.logger.Debug().Str("dir", src.Path).Msg("watching directory")
	}

	return fsw, nil
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if w.relevant(ev) {
				w.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("change detected")
				w.Trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// relevant 只关心可识别扩展名的新建、写入与重命名.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if len(w.opts.Extensions) == 0 {
		return true
	}

	ext := strings.ToLower(path.Ext(ev.Name))

	return slices.ContainsFunc(w.opts.Extensions, func(e string) bool { return strings.EqualFold(e, ext) })
}

func (w *Watcher) rescanLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.pending:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}

		if _, err := w.lib.Scan(ctx, service.TriggerFSNotify); err != nil {
			w.logger.Warn().Err(err).Msg("rescan failed")
		}
	}
}

// subscribeEvents 为每个主题注册一个记录日志的处理函数.
func (w *Watcher) subscribeEvents() {
	for _, topic := range queue.AllTopics {
		w.bus.Handle("log."+topic, topic, func(msg *message.Message) error {
			h, err := queue.Header(msg)
			if err != nil {
				w.logger.Warn().Err(err).Str("topic", topic).Msg("undecodable event")
				return nil
			}

			w.logger.Info().
				Str("topic", h.Topic).
				Str("producer", h.Producer).
				Str("trace_id", h.TraceID).
				Time("at", h.OccurredAt.In(time.Local)).
				Msg("event")

			return nil
		})
	}
}
