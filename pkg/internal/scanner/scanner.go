// Package scanner 扫描配置的目录（只看第一层），把可识别的文档转换为文件记录.
package scanner

import (
	"context"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/model"
	nlog "github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/metrics"
)

// Source 一个待扫描目录.
type Source = configs.ScanSource

// Failure 无法列出的目录.
type Failure struct {
	Path string
	Err  error
}

// Result 一次扫描的结果，记录按目录顺序、目录内按条目顺序排列，不去重.
type Result struct {
	Records  []model.FileRecord
	Failures []Failure
}

// Option 扫描器选项.
type Option func(*Scanner)

// WithExtensions 设置可识别的扩展名（含点，不区分大小写）.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.exts = model.NormalizeExts(exts)
	}
}

// WithIDScheme 设置标识生成方式，见 configs.IDSchemeTimestamp / configs.IDSchemePath.
func WithIDScheme(scheme string) Option {
	return func(s *Scanner) {
		s.idScheme = scheme
	}
}

// WithWorkers 同时列出的目录数.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock 替换当前时间来源.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// Scanner 目录扫描器.
type Scanner struct {
	probe    fsprobe.Probe
	exts     []string
	idScheme string
	workers  int
	now      func() time.Time
	logger   zerolog.Logger
}

// New 创建扫描器，默认识别 .pdf 与 .xlsx.
func New(probe fsprobe.Probe, opts ...Option) *Scanner {
	s := &Scanner{
		probe:    probe,
		exts:     []string{".pdf", ".xlsx"},
		idScheme: configs.IDSchemeTimestamp,
		workers:  configs.DefaultScanWorkers,
		now:      time.Now,
		logger:   nlog.Component("scanner"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewFromConfig 按 scan 配置创建扫描器.
func NewFromConfig(probe fsprobe.Probe, cfg configs.ScanConfig) *Scanner {
	return New(probe,
		WithExtensions(cfg.Extensions...),
		WithIDScheme(cfg.IDScheme),
		WithWorkers(cfg.Workers),
	)
}

// Scan 依次扫描每个目录. 单个目录失败只记入 Failures，不影响其他目录.
func (s *Scanner) Scan(ctx context.Context, sources []Source) Result {
	at := s.now()
	perSource := make([][]model.FileRecord, len(sources))
	failures := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, src := range sources {
		g.Go(func() error {
			perSource[i], failures[i] = s.scanDir(gctx, src, at)
			return nil
		})
	}

	_ = g.Wait()

	var res Result

	for i, src := range sources {
		if failures[i] != nil {
			s.logger.Warn().Err(failures[i]).Str("dir", src.Path).Msg("skip directory")
			metrics.ScanDirFailures.Inc()
			res.Failures = append(res.Failures, Failure{Path: src.Path, Err: failures[i]})

			continue
		}

		res.Records = append(res.Records, perSource[i]...)
	}

	return res
}

func (s *Scanner) scanDir(ctx context.Context, src Source, at time.Time) ([]model.FileRecord, error) {
	names, err := s.probe.ListDirectory(ctx, src.Path)
	if err != nil {
		return nil, err
	}

	var records []model.FileRecord

	for _, name := range names {
		if !s.accepts(name) {
			continue
		}

		uri := fsprobe.Join(src.Path, name)

		info, err := s.probe.Stat(ctx, uri)
		if err != nil {
			s.logger.Debug().Err(err).Str("uri", uri).Msg("stat failed")
			continue
		}

		if !info.Exists || info.Size <= 0 {
			continue
		}

		modified := info.ModTime
		if modified.IsZero() {
			modified = at
		}

		records = append(records, model.FileRecord{
			ID:           s.newID(src.Label, name, uri, at),
			Name:         name,
			URI:          uri,
			Size:         info.Size,
			LastModified: modified,
		})
	}

	return records, nil
}

func (s *Scanner) newID(label, name, uri string, at time.Time) string {
	if s.idScheme == configs.IDSchemePath {
		return model.NewPathID(label, uri)
	}

	return model.NewScanID(label, name, at)
}

func (s *Scanner) accepts(name string) bool {
	return slices.Contains(s.exts, strings.ToLower(path.Ext(name)))
}
