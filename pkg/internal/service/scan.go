package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/picker"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/metrics"
	"github.com/yeisme/docshelf/pkg/queue"
	"github.com/yeisme/docshelf/pkg/tracing"
)

// 扫描触发来源.
const (
	TriggerCLI      = "cli"
	TriggerCron     = "cron"
	TriggerFSNotify = "fsnotify"
	TriggerStartup  = "startup"
)

// ScanReport 一次扫描的汇总.
type ScanReport struct {
	RunID    string
	Trigger  string
	Found    int
	Added    []model.FileRecord
	Total    int
	Failures []scanner.Failure
	Duration time.Duration
}

// ImportReport 一次导入的结果.
type ImportReport struct {
	Added []model.FileRecord
	// Notice 给用户看的提示，选择为空时为空串
	Notice string
}

func newRunID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// Scan 扫描所有来源目录并合并进文件清单.
func (s *LibraryService) Scan(ctx context.Context, trigger string) (ScanReport, error) {
	ctx, span := tracing.StartSpan(ctx, "library.Scan")
	defer span.End()

	if err := s.ensurePermission(ctx); err != nil {
		return ScanReport{}, err
	}

	start := time.Now()
	report := ScanReport{RunID: newRunID(start), Trigger: trigger}

	res := s.Scanner.Scan(ctx, s.Sources)
	report.Found = len(res.Records)
	report.Failures = res.Failures

	merged, err := s.Registry.Merge(ctx, res.Records)
	if err != nil {
		s.logger.Warn().Err(err).Str("run", report.RunID).Msg("registry not persisted after scan")
	}

	report.Added = merged.Added
	report.Total = len(merged.Records)
	report.Duration = time.Since(start)

	metrics.ScanRuns.WithLabelValues(trigger).Inc()
	metrics.ScanFiles.WithLabelValues("found").Add(float64(report.Found))
	metrics.ScanFiles.WithLabelValues("added").Add(float64(len(report.Added)))
	metrics.ScanDuration.Observe(report.Duration.Seconds())

	span.SetAttributes(
		attribute.String("scan.run_id", report.RunID),
		attribute.Int("scan.found", report.Found),
		attribute.Int("scan.added", len(report.Added)),
	)

	s.logger.Info().
		Str("run", report.RunID).
		Str("trigger", trigger).
		Int("found", report.Found).
		Int("added", len(report.Added)).
		Int("total", report.Total).
		Int("failed_dirs", len(report.Failures)).
		Dur("took", report.Duration).
		Msg("scan finished")

	s.published(queue.TopicRegistryAdded, s.Events.RegistryAdded(ctx, queue.RegistryAddedPayload{
		Origin:  queue.OriginScan,
		Records: queue.RefsOf(report.Added),
	}))
	s.published(queue.TopicScanCompleted, s.Events.ScanCompleted(ctx, scanPayload(report)))

	return report, nil
}

func scanPayload(r ScanReport) queue.ScanCompletedPayload {
	p := queue.ScanCompletedPayload{
		RunID:    r.RunID,
		Trigger:  r.Trigger,
		Found:    r.Found,
		Added:    len(r.Added),
		Total:    r.Total,
		Duration: r.Duration,
	}

	for _, f := range r.Failures {
		p.Failures = append(p.Failures, queue.ScanFailure{Path: f.Path, Error: f.Err.Error()})
	}

	return p
}

// Import 导入命令行给出的文件，新记录放在清单最前面.
func (s *LibraryService) Import(ctx context.Context, paths []string) (ImportReport, error) {
	ctx, span := tracing.StartSpan(ctx, "library.Import")
	defer span.End()

	if err := s.ensurePermission(ctx); err != nil {
		return ImportReport{}, err
	}

	picked, err := s.Picker.Pick(ctx, paths)
	if errors.Is(err, picker.ErrCancelled) {
		return ImportReport{}, nil
	}

	if err != nil {
		return ImportReport{}, fmt.Errorf("pick files: %w", err)
	}

	now := time.Now()
	records := make([]model.FileRecord, 0, len(picked))

	for _, p := range picked {
		info, err := s.Probe.Stat(ctx, p.URI)
		if err != nil {
			s.logger.Warn().Err(err).Str("uri", p.URI).Msg("stat failed")
			continue
		}

		if !info.Exists {
			continue
		}

		modified := info.ModTime
		if modified.IsZero() {
			modified = now
		}

		size := info.Size
		if size == 0 {
			size = p.Size
		}

		records = append(records, model.FileRecord{
			ID:           model.NewManualID(p.Name, now),
			Name:         p.Name,
			URI:          p.URI,
			Size:         size,
			LastModified: modified,
		})
	}

	added, err := s.Registry.AddManual(ctx, records)
	if err != nil {
		s.logger.Warn().Err(err).Msg("registry not persisted after import")
	}

	report := ImportReport{Added: added}
	if len(added) > 0 {
		report.Notice = fmt.Sprintf("%d files added", len(added))
	} else {
		report.Notice = "selected files were not found"
	}

	s.published(queue.TopicRegistryAdded, s.Events.RegistryAdded(ctx, queue.RegistryAddedPayload{
		Origin:  queue.OriginImport,
		Records: queue.RefsOf(added),
	}))

	return report, nil
}

// published 事件发布失败只记录日志.
func (s *LibraryService) published(topic string, err error) {
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}
