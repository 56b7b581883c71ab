package service

import (
	"context"
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/metrics"
	"github.com/yeisme/docshelf/pkg/queue"
	"github.com/yeisme/docshelf/pkg/tracing"
)

// Outcome 打开文件的结果.
type Outcome string

const (
	OutcomeOpened  Outcome = "opened"
	OutcomeMissing Outcome = "missing"
)

// OpenResult Open 的返回值.
type OpenResult struct {
	Outcome Outcome
	Record  model.FileRecord
	// ViewedURI 交给查看器的路径，非本地文件为缓存中的副本
	ViewedURI string
}

// Open 打开集合中的记录. 文件已不存在时从该集合移除并返回 OutcomeMissing.
func (s *LibraryService) Open(ctx context.Context, scope Scope, id string) (OpenResult, error) {
	ctx, span := tracing.StartSpan(ctx, "library.Open")
	defer span.End()

	span.SetAttributes(attribute.String("scope", string(scope)), attribute.String("record.id", id))

	if err := s.ensurePermission(ctx); err != nil {
		return OpenResult{}, err
	}

	coll := s.collection(scope)

	rec, ok := coll.Get(id)
	if !ok {
		return OpenResult{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	info, err := s.Probe.Stat(ctx, rec.URI)
	if err != nil {
		metrics.OpenTotal.WithLabelValues(string(scope), "error").Inc()
		return OpenResult{}, fmt.Errorf("check %s: %w", rec.URI, err)
	}

	if !info.Exists {
		if _, err := coll.Remove(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("id", id).Msg("missing record removed from memory only")
		}

		metrics.OpenTotal.WithLabelValues(string(scope), string(OutcomeMissing)).Inc()
		s.logger.Info().Str("scope", string(scope)).Str("id", id).Str("uri", rec.URI).Msg("file missing, record removed")
		s.published(queue.TopicRegistryMissing, s.Events.RecordMissing(ctx, queue.RegistryRemovedPayload{
			Scope:  string(scope),
			Record: queue.RefOf(rec),
		}))

		return OpenResult{Outcome: OutcomeMissing, Record: rec}, nil
	}

	uri := rec.URI
	if !fsprobe.IsLocal(uri) {
		local := filepath.Join(s.CacheDir, "open", rec.Name)
		if err := s.Probe.Copy(ctx, uri, local); err != nil {
			metrics.OpenTotal.WithLabelValues(string(scope), "error").Inc()
			return OpenResult{}, fmt.Errorf("fetch %s: %w", uri, err)
		}

		uri = local
	}

	if err := s.Viewer.View(ctx, uri, rec.Name); err != nil {
		metrics.OpenTotal.WithLabelValues(string(scope), "error").Inc()
		return OpenResult{}, fmt.Errorf("view %s: %w", rec.Name, err)
	}

	metrics.OpenTotal.WithLabelValues(string(scope), string(OutcomeOpened)).Inc()

	return OpenResult{Outcome: OutcomeOpened, Record: rec, ViewedURI: uri}, nil
}

// Delete 从集合中移除记录，不存在时返回 false.
func (s *LibraryService) Delete(ctx context.Context, scope Scope, id string) (bool, error) {
	if scope == ScopeFavorites {
		return s.RemoveFavorite(ctx, id)
	}

	rec, _ := s.Registry.Get(id)

	removed, err := s.Registry.Remove(ctx, id)
	if removed {
		s.published(queue.TopicRegistryRemoved, s.Events.RecordRemoved(ctx, queue.RegistryRemovedPayload{
			Scope:  string(ScopeRegistry),
			Record: queue.RefOf(rec),
		}))
	}

	return removed, err
}
