// Package metrics 提供监控指标功能.
// 指标始终可以记录；只有 watch 模式且 metrics.enabled 时才通过 HTTP 暴露.
//
// Example:
//
//	metrics.ScanRuns.WithLabelValues("ok").Inc()
//	metrics.OpenTotal.WithLabelValues("registry", "opened").Inc()
//
//	// watch 模式
//	go metrics.Serve(ctx, cfg.Metrics)
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/docshelf/pkg/configs"
)

const namespace = "docshelf"

// 全局指标变量.
var (
	// StoreRecords 各存储当前记录数.
	StoreRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Number of records currently held by a store",
		},
		[]string{"store"},
	)

	// PersistFailures 持久化失败次数，内存镜像仍保留变更.
	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes of a store collection to the KV backend",
		},
		[]string{"store"},
	)

	// ScanRuns 扫描次数.
	ScanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_runs_total",
			Help:      "Directory scans by trigger",
		},
		[]string{"trigger"},
	)

	// ScanFiles 扫描发现与新增的文件数.
	ScanFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_files_total",
			Help:      "Files found and added by scans",
		},
		[]string{"result"},
	)

	// ScanDirFailures 无法列出的目录数.
	ScanDirFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_directory_failures_total",
			Help:      "Scan directories that could not be listed",
		},
	)

	// ScanDuration 单次扫描耗时.
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scan",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// OpenTotal 打开文件的结果.
	OpenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_total",
			Help:      "Open requests by scope and outcome",
		},
		[]string{"scope", "outcome"},
	)

	// PermissionPrompts 授权询问及结果.
	PermissionPrompts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_prompts_total",
			Help:      "Permission prompts by answer",
		},
		[]string{"answer"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 初始化Metrics，把领域指标（带上配置的固定标签）注册到注册表.
// 关闭运行时指标时从默认注册表移除 Go/进程收集器.
func InitMetrics(config configs.MetricsConfig) {
	if !config.Enabled {
		return
	}

	initOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)
		reg.MustRegister(
			StoreRecords, PersistFailures,
			ScanRuns, ScanFiles, ScanDirFailures, ScanDuration,
			OpenTotal, PermissionPrompts,
		)

		if !config.RuntimeMetrics {
			prometheus.Unregister(collectors.NewGoCollector())
			prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
	})
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Gatherer 合并领域指标与默认注册表（GORM、watermill、运行时指标注册在默认表）.
func Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{registry, prometheus.DefaultGatherer}
}

// Handler 返回 /metrics（以及可选 pprof）的路由.
func Handler(config configs.MetricsConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{}))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

const shutdownTimeout = 5 * time.Second

// Serve 启动Metrics HTTP服务器，ctx 取消时优雅关闭.
func Serve(ctx context.Context, config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	srv := &http.Server{
		Addr:              config.Endpoint,
		Handler:           Handler(config),
		ReadHeaderTimeout: shutdownTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
