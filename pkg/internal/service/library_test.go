package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/fsprobe"
	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/permission"
	"github.com/yeisme/docshelf/pkg/internal/picker"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/internal/service"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
	"github.com/yeisme/docshelf/pkg/internal/store"
	"github.com/yeisme/docshelf/pkg/queue"
)

type recordingViewer struct {
	calls [][2]string
}

func (r *recordingViewer) View(_ context.Context, uri, name string) error {
	r.calls = append(r.calls, [2]string{uri, name})
	return nil
}

type recordingPublisher struct {
	topics []string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ ...*message.Message) error {
	r.topics = append(r.topics, topic)
	return nil
}

type staticProvider struct {
	status permission.Status
}

func (s staticProvider) Status(context.Context) (permission.Status, error) { return s.status, nil }

func (s staticProvider) Request(context.Context) (bool, error) { return false, nil }

// remoteProbe 本地路径交给 fsprobe.Local，s3:// 对象视为存在并在复制时写出内容.
type remoteProbe struct {
	*fsprobe.Local
	statErr error
	copied  [][2]string
}

func (r *remoteProbe) Stat(ctx context.Context, uri string) (fsprobe.Info, error) {
	if r.statErr != nil {
		return fsprobe.Info{}, r.statErr
	}

	if !fsprobe.IsLocal(uri) {
		return fsprobe.Info{Exists: true, Size: 6}, nil
	}

	return r.Local.Stat(ctx, uri)
}

func (r *remoteProbe) Copy(ctx context.Context, from, to string) error {
	r.copied = append(r.copied, [2]string{from, to})

	if !fsprobe.IsLocal(from) {
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return err
		}

		return os.WriteFile(to, []byte("remote"), 0o644)
	}

	return r.Local.Copy(ctx, from, to)
}

type fixture struct {
	svc      *service.LibraryService
	registry *store.Registry
	viewer   *recordingViewer
	events   *recordingPublisher
	docs     string
	cache    string
}

func newFixture(t *testing.T, status permission.Status) *fixture {
	t.Helper()

	return newFixtureWithProbe(t, status, fsprobe.NewLocal())
}

func newFixtureWithProbe(t *testing.T, status permission.Status, probe fsprobe.Probe) *fixture {
	t.Helper()

	ctx := context.Background()
	backend, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	docs := t.TempDir()
	cache := t.TempDir()
	v := &recordingViewer{}
	pub := &recordingPublisher{}

	reg := store.NewRegistry(backend, "@files")
	fav := store.NewFavorites(backend, "@favorites")
	reg.Load(ctx)
	fav.Load(ctx)

	svc := service.NewLibraryService(service.Deps{
		Registry:  reg,
		Favorites: fav,
		Scanner:   scanner.New(probe, scanner.WithIDScheme(configs.IDSchemePath)),
		Sources:   []scanner.Source{{Path: docs, Label: "Documents"}},
		Gate:      permission.NewGate(staticProvider{status: status}),
		Probe:     probe,
		Picker:    picker.New(probe, configs.PickerConfig{Accept: []string{".pdf", ".xlsx"}}, cache),
		Viewer:    v,
		Events: queue.NewEmitter(pub, configs.EventsConfig{
			Enabled:   true,
			Registry:  configs.RegistryEventsConfig{Added: true, Removed: true, Missing: true},
			Favorites: configs.FavoritesEventsConfig{Added: true, Removed: true},
			Scan:      true,
		}),
		CacheDir: cache,
		Enforce:  true,
	})

	return &fixture{svc: svc, registry: reg, viewer: v, events: pub, docs: docs, cache: cache}
}

func granted(t *testing.T) *fixture {
	return newFixture(t, permission.Status{Granted: true})
}

func (f *fixture) write(t *testing.T, name string) string {
	t.Helper()

	p := filepath.Join(f.docs, name)
	require.NoError(t, os.WriteFile(p, []byte("content"), 0o644))

	return p
}

func TestScanMergesIntoRegistry(t *testing.T) {
	f := granted(t)
	f.write(t, "a.pdf")
	f.write(t, "b.xlsx")

	ctx := context.Background()

	report, err := f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Found)
	assert.Len(t, report.Added, 2)
	assert.Equal(t, 2, report.Total)
	assert.Len(t, report.RunID, 26)

	report, err = f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)
	assert.Empty(t, report.Added)
	assert.Equal(t, 2, report.Total)

	assert.Contains(t, f.events.topics, queue.TopicRegistryAdded)
	assert.Contains(t, f.events.topics, queue.TopicScanCompleted)
}

func TestPermissionDeniedBlocksScan(t *testing.T) {
	f := newFixture(t, permission.Status{CanAskAgain: false})
	f.write(t, "a.pdf")

	_, err := f.svc.Scan(context.Background(), service.TriggerCLI)
	require.ErrorIs(t, err, service.ErrPermissionDenied)
	assert.Empty(t, f.svc.List(service.ScopeRegistry))
}

func TestOpenDispatchesToViewer(t *testing.T) {
	f := granted(t)
	path := f.write(t, "sheet.xlsx")

	ctx := context.Background()
	_, err := f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)

	rec := f.svc.List(service.ScopeRegistry)[0]

	res, err := f.svc.Open(ctx, service.ScopeRegistry, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeOpened, res.Outcome)
	assert.Equal(t, [][2]string{{path, "sheet.xlsx"}}, f.viewer.calls)
}

func TestOpenMissingPrunesInvokingStore(t *testing.T) {
	f := granted(t)
	path := f.write(t, "gone.pdf")

	ctx := context.Background()
	_, err := f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)

	rec := f.svc.List(service.ScopeRegistry)[0]
	added, err := f.svc.AddFavorite(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, added)

	require.NoError(t, os.Remove(path))

	res, err := f.svc.Open(ctx, service.ScopeRegistry, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeMissing, res.Outcome)
	assert.Empty(t, f.svc.List(service.ScopeRegistry))
	assert.Empty(t, f.viewer.calls)
	assert.True(t, f.svc.IsFavorite(rec.ID))
	assert.Contains(t, f.events.topics, queue.TopicRegistryMissing)

	res, err = f.svc.Open(ctx, service.ScopeFavorites, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeMissing, res.Outcome)
	assert.False(t, f.svc.IsFavorite(rec.ID))
}

func TestOpenUnknownID(t *testing.T) {
	f := granted(t)

	_, err := f.svc.Open(context.Background(), service.ScopeRegistry, "nope")
	assert.ErrorIs(t, err, service.ErrRecordNotFound)
}

func TestFavoritesFlow(t *testing.T) {
	f := granted(t)
	f.write(t, "a.pdf")

	ctx := context.Background()
	_, err := f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)

	id := f.svc.List(service.ScopeRegistry)[0].ID

	added, err := f.svc.AddFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.svc.AddFavorite(ctx, id)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, f.svc.List(service.ScopeFavorites), 1)

	_, err = f.svc.AddFavorite(ctx, "unknown")
	require.ErrorIs(t, err, service.ErrRecordNotFound)

	removed, err := f.svc.Delete(ctx, service.ScopeRegistry, id)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, f.svc.IsFavorite(id))

	removed, err = f.svc.RemoveFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.svc.RemoveFavorite(ctx, id)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestImportPrependsManualRecords(t *testing.T) {
	f := granted(t)
	f.write(t, "scanned.pdf")

	ctx := context.Background()
	_, err := f.svc.Scan(ctx, service.TriggerCLI)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "picked.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	report, err := f.svc.Import(ctx, []string{outside})
	require.NoError(t, err)
	require.Len(t, report.Added, 1)
	assert.Equal(t, "1 files added", report.Notice)

	list := f.svc.List(service.ScopeRegistry)
	require.Len(t, list, 2)
	assert.Equal(t, "picked.pdf", list[0].Name)
	assert.Regexp(t, `^manual_picked\.pdf_\d+_`, list[0].ID)
	assert.WithinDuration(t, time.Now(), list[0].LastModified, time.Minute)
}

func TestImportNothingSelected(t *testing.T) {
	f := granted(t)

	report, err := f.svc.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Notice)
}

func TestParseScope(t *testing.T) {
	s, err := service.ParseScope("fav")
	require.NoError(t, err)
	assert.Equal(t, service.ScopeFavorites, s)

	s, err = service.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, service.ScopeRegistry, s)

	_, err = service.ParseScope("trash")
	assert.Error(t, err)
}

func TestOpenStatErrorKeepsRecord(t *testing.T) {
	probe := &remoteProbe{Local: fsprobe.NewLocal()}
	f := newFixtureWithProbe(t, permission.Status{Granted: true}, probe)

	ctx := context.Background()
	rec := model.FileRecord{ID: "remote_1", Name: "report.pdf", URI: "s3://docs/report.pdf", Size: 6}
	_, err := f.registry.Merge(ctx, []model.FileRecord{rec})
	require.NoError(t, err)

	probe.statErr = errors.New("connection reset")

	_, err = f.svc.Open(ctx, service.ScopeRegistry, rec.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	got, ok := f.registry.Get(rec.ID)
	assert.True(t, ok)
	assert.Equal(t, rec.URI, got.URI)
	assert.Empty(t, f.viewer.calls)
	assert.NotContains(t, f.events.topics, queue.TopicRegistryMissing)
}

func TestOpenRemoteCopiesToCacheFirst(t *testing.T) {
	probe := &remoteProbe{Local: fsprobe.NewLocal()}
	f := newFixtureWithProbe(t, permission.Status{Granted: true}, probe)

	ctx := context.Background()
	rec := model.FileRecord{ID: "remote_2", Name: "sheet.xlsx", URI: "s3://docs/q1/sheet.xlsx", Size: 6}
	_, err := f.registry.Merge(ctx, []model.FileRecord{rec})
	require.NoError(t, err)

	res, err := f.svc.Open(ctx, service.ScopeRegistry, rec.ID)
	require.NoError(t, err)

	local := filepath.Join(f.cache, "open", "sheet.xlsx")
	assert.Equal(t, service.OutcomeOpened, res.Outcome)
	assert.Equal(t, local, res.ViewedURI)
	assert.Equal(t, [][2]string{{rec.URI, local}}, probe.copied)
	assert.Equal(t, [][2]string{{local, "sheet.xlsx"}}, f.viewer.calls)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))
}
