// Package app 提供应用程序的初始化和组装功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/permission"
	"github.com/yeisme/docshelf/pkg/internal/picker"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/internal/service"
	"github.com/yeisme/docshelf/pkg/internal/storage"
	"github.com/yeisme/docshelf/pkg/internal/store"
	"github.com/yeisme/docshelf/pkg/internal/viewer"
	"github.com/yeisme/docshelf/pkg/internal/watch"
	"github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/metrics"
	"github.com/yeisme/docshelf/pkg/queue"
	"github.com/yeisme/docshelf/pkg/scheduler"
	"github.com/yeisme/docshelf/pkg/tracing"
)

// App 持有组装好的组件，命令行直接调用 Library.
type App struct {
	Config  *configs.AppConfig
	Storage *storage.Manager
	Library *service.LibraryService
	Gate    *permission.Gate
	Consent *permission.ConsentProvider
}

type options struct {
	prompter permission.Prompter
}

// Option 组装选项.
type Option func(*options)

// WithPrompter 指定授权询问方式，nil 表示不询问（常驻模式）.
func WithPrompter(p permission.Prompter) Option {
	return func(o *options) { o.prompter = p }
}

// WithTerminal 在给定的输入输出上询问授权.
func WithTerminal(in io.Reader, out io.Writer) Option {
	return WithPrompter(permission.NewTerminalPrompter(in, out))
}

// New 读取配置并组装所有组件.
func New(ctx context.Context, configPath string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()

	log.Init()

	if err := tracing.InitTracer(ctx, cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	metrics.InitMetrics(cfg.Metrics)

	for _, dir := range []string{cfg.App.DataDir, cfg.App.DocumentsDir(), cfg.App.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	mgr, err := storage.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Storage: mgr}
	a.assemble(ctx, o)

	return a, nil
}

func (a *App) assemble(ctx context.Context, o options) {
	cfg := a.Config

	probe := fsprobe.NewMux(fsprobe.NewLocal())
	if a.Storage.S3 != nil {
		probe.Register("s3", fsprobe.NewS3(a.Storage.S3.Client))
	}

	registry := store.NewRegistry(a.Storage.KV, cfg.KV.RegistryKey)
	favorites := store.NewFavorites(a.Storage.KV, cfg.KV.FavoritesKey)
	registry.Load(ctx)
	favorites.Load(ctx)

	a.Consent = permission.NewConsentProvider(a.Storage.KV, cfg.KV.PermissionKey, o.prompter, cfg.Permission.MaxPrompts)
	a.Gate = permission.NewGate(a.Consent)

	var events *queue.Emitter
	if a.Storage.MQ != nil {
		events = queue.NewEmitter(a.Storage.MQ, cfg.Events)
	}

	a.Library = service.NewLibraryService(service.Deps{
		Registry:  registry,
		Favorites: favorites,
		Scanner:   scanner.NewFromConfig(probe, cfg.Scan),
		Sources:   cfg.Scan.GetSources(cfg.App),
		Gate:      a.Gate,
		Probe:     probe,
		Picker:    picker.New(probe, cfg.Picker, cfg.App.CacheDir),
		Viewer:    viewer.NewDispatcher(cfg.Viewer),
		Events:    events,
		CacheDir:  cfg.App.CacheDir,
		Enforce:   cfg.Permission.Enforce,
	})
}

// Watch 进入常驻模式，直到 ctx 取消.
func (a *App) Watch(ctx context.Context) error {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	var bus watch.EventBus
	if a.Storage.MQ != nil {
		bus = a.Storage.MQ
	}

	w := watch.New(a.Library, sched, bus, watch.Options{
		Sources:    a.Config.Scan.GetSources(a.Config.App),
		Extensions: a.Config.Scan.Extensions,
		Watch:      a.Config.Watch,
		Metrics:    a.Config.Metrics,
	})

	return w.Run(ctx)
}

// Close 释放存储并刷新追踪数据.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.Storage.Close(), tracing.ShutdownTracer(ctx))
}
