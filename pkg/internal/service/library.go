package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/permission"
	"github.com/yeisme/docshelf/pkg/internal/picker"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/internal/store"
	"github.com/yeisme/docshelf/pkg/internal/viewer"
	nlog "github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/queue"
)

var (
	// ErrPermissionDenied 没有文件访问授权.
	ErrPermissionDenied = errors.New("file access permission denied")
	// ErrRecordNotFound 集合中没有该 id.
	ErrRecordNotFound = errors.New("record not found")
)

// Scope 操作针对的集合.
type Scope string

const (
	ScopeRegistry  Scope = "registry"
	ScopeFavorites Scope = "favorites"
)

// ParseScope 解析命令行中的集合名.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeRegistry, "files", "":
		return ScopeRegistry, nil
	case ScopeFavorites, "fav":
		return ScopeFavorites, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Deps LibraryService 依赖的组件，由 app 包组装.
type Deps struct {
	Registry  *store.Registry
	Favorites *store.Favorites
	Scanner   *scanner.Scanner
	Sources   []scanner.Source
	Gate      *permission.Gate
	Probe     fsprobe.Probe
	Picker    *picker.Picker
	Viewer    viewer.Viewer
	Events    *queue.Emitter
	// CacheDir 打开非本地文件前先复制到这里
	CacheDir string
	// Enforce 为 true 时访问文件系统前检查授权
	Enforce bool
}

// LibraryService 文件清单与收藏的业务编排.
type LibraryService struct {
	Deps

	logger zerolog.Logger
}

// NewLibraryService 创建服务.
func NewLibraryService(d Deps) *LibraryService {
	return &LibraryService{Deps: d, logger: nlog.Component("library")}
}

// List 返回集合内容.
func (s *LibraryService) List(scope Scope) []model.FileRecord {
	if scope == ScopeFavorites {
		return s.Favorites.List()
	}

	return s.Registry.List()
}

// IsFavorite 是否已收藏.
func (s *LibraryService) IsFavorite(id string) bool {
	return s.Favorites.IsFavorite(id)
}

// ensurePermission 授权未决时先查询，仍未授权则询问一次.
func (s *LibraryService) ensurePermission(ctx context.Context) error {
	if !s.Enforce || s.Gate == nil {
		return nil
	}

	if s.Gate.HasPermission() {
		return nil
	}

	if s.Gate.Check(ctx) {
		return nil
	}

	res := s.Gate.Request(ctx)
	if res.Granted {
		return nil
	}

	if res.OpenSettings {
		return fmt.Errorf("%w: run `docshelf perm grant` to allow access", ErrPermissionDenied)
	}

	return ErrPermissionDenied
}

func (s *LibraryService) collection(scope Scope) interface {
	Get(id string) (model.FileRecord, bool)
	Remove(ctx context.Context, id string) (bool, error)
} {
	if scope == ScopeFavorites {
		return s.Favorites
	}

	return s.Registry
}
