package kv_test

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/storage/db"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
)

func newSQLStore(t testing.TB) kv.KVStore {
	t.Helper()

	dir := t.TempDir()
	opts := &db.Options{
		DB:  configs.DBConfig{Type: configs.SQLite, Path: filepath.Join(dir, "kv.db"), Database: "kv"},
		App: configs.AppSettings{DataDir: dir},
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeSQL, opts)
	require.NoError(t, err)

	return store
}

func localStores(t *testing.T) map[string]kv.KVStore {
	t.Helper()

	mem, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	gc, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, &configs.GroupcacheKVConfig{
		Name:       "test-groupcache",
		CacheBytes: 1 << 20,
	})
	require.NoError(t, err)

	return map[string]kv.KVStore{
		"memory":     mem,
		"groupcache": gc,
		"sql":        newSQLStore(t),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range localStores(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			_, err := store.Get(ctx, "@docshelf_files")
			require.ErrorIs(t, err, kv.ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, "@docshelf_files", []byte(`[{"id":"a"}]`), 0))
			require.NoError(t, store.Set(ctx, "@docshelf_favorites", []byte(`[]`), 0))

			got, err := store.Get(ctx, "@docshelf_files")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"a"}]`, string(got))

			// 覆盖写入后读到新值
			require.NoError(t, store.Set(ctx, "@docshelf_files", []byte(`[{"id":"b"}]`), 0))
			got, err = store.Get(ctx, "@docshelf_files")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"b"}]`, string(got))

			ok, err := store.Exists(ctx, "@docshelf_favorites")
			require.NoError(t, err)
			assert.True(t, ok)

			keys, err := store.Keys(ctx, "@docshelf_f*")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"@docshelf_files", "@docshelf_favorites"}, keys)

			keys, err = store.Keys(ctx, "@docshelf_fav*")
			require.NoError(t, err)
			assert.Equal(t, []string{"@docshelf_favorites"}, keys)

			require.NoError(t, store.Delete(ctx, "@docshelf_files"))
			require.NoError(t, store.Delete(ctx, "@docshelf_files"))

			ok, err = store.Exists(ctx, "@docshelf_files")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()

	for _, store := range []kv.KVStore{newSQLStore(t), mustMemory(t)} {
		require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))

		got, err := store.Get(ctx, "short")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		time.Sleep(1100 * time.Millisecond)

		_, err = store.Get(ctx, "short")
		require.ErrorIs(t, err, kv.ErrKeyNotFound)
		_ = store.Close()
	}
}

func TestSQLStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := &db.Options{
		DB:  configs.DBConfig{Type: configs.SQLite, Database: "docshelf"},
		App: configs.AppSettings{DataDir: filepath.Join(dir, "nested")},
	}

	store, err := kv.NewKVStore(ctx, kv.KVTypeSQL, opts)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "@docshelf_files", []byte(`["x"]`), 0))
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(dir, "nested", "docshelf.db"))
	require.NoError(t, err)

	store, err = kv.NewKVStore(ctx, kv.KVTypeSQL, opts)
	require.NoError(t, err)

	defer store.Close()

	got, err := store.Get(ctx, "@docshelf_files")
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, string(got))
}

func TestTypedJSON(t *testing.T) {
	ctx := context.Background()
	store := mustMemory(t)

	type consent struct {
		Granted bool `json:"granted"`
		Refused int  `json:"refused"`
	}

	_, found, err := kv.GetJSON[consent](ctx, store, "@docshelf_permission")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.SetJSON(ctx, store, "@docshelf_permission", consent{Refused: 2}, 0))

	got, found, err := kv.GetJSON[consent](ctx, store, "@docshelf_permission")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, consent{Refused: 2}, got)

	require.NoError(t, store.Set(ctx, "broken", []byte("{"), 0))
	_, _, err = kv.GetJSON[consent](ctx, store, "broken")
	require.Error(t, err)
}

// flakyKV 每次调用都失败.
type flakyKV struct {
	kv.KVStore

	calls atomic.Int32
}

var errBackendDown = errors.New("backend down")

func (f *flakyKV) Get(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	return nil, errBackendDown
}

func TestBreakerOpensOnFailures(t *testing.T) {
	ctx := context.Background()
	backend := &flakyKV{KVStore: mustMemory(t)}

	store := kv.WithBreaker(backend, "test", configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       3,
		IntervalSeconds:   60,
		TimeoutSeconds:    30,
		MaxRequestsInHalf: 1,
	})

	for range 3 {
		_, err := store.Get(ctx, "k")
		require.ErrorIs(t, err, errBackendDown)
	}

	assert.Equal(t, gobreaker.StateOpen, store.State())

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestBreakerIgnoresMissingKeys(t *testing.T) {
	ctx := context.Background()
	store := kv.WithBreaker(mustMemory(t), "test-missing", configs.CircuitBreakerConfig{
		FailureRate:       0.1,
		MinRequests:       1,
		IntervalSeconds:   60,
		TimeoutSeconds:    30,
		MaxRequestsInHalf: 1,
	})

	for range 5 {
		_, err := store.Get(ctx, "absent")
		require.ErrorIs(t, err, kv.ErrKeyNotFound)
	}

	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestUnsupportedType(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), kv.KVType("etcd"), nil)
	require.Error(t, err)
	assert.Contains(t, kv.GetRegisteredKVTypes(), kv.KVTypeSQL)
}

func mustMemory(t testing.TB) kv.KVStore {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	return store
}

func BenchmarkMemoryKV(b *testing.B) {
	store := mustMemory(b)

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkSQLKV(b *testing.B) {
	store := newSQLStore(b)

	benchKV(b, "sql", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{
		Name:       "bench-groupcache",
		CacheBytes: 32 * 1024 * 1024, // 32MB
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, &configs.RedisKVConfig{Addr: addr})
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_NATS_BENCH=1 and NATS_URL set (default nats://127.0.0.1:4222).
func BenchmarkNATSKV(b *testing.B) {
	if os.Getenv("ENABLE_NATS_BENCH") == "" {
		b.Skip("set ENABLE_NATS_BENCH=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeNATS, &configs.NATSKVConfig{URL: url, Bucket: "bench-kv"})
	if err != nil {
		b.Skipf("nats not available: %v", err)
		return
	}

	benchKV(b, "nats", store)
	benchKVParallel(b, "nats", store)
	_ = store.Close()
}

// randBytes returns n random bytes.
func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 模拟清单整体写入再读回，对应一次 Merge 后的持久化.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	sizes := []int{256, 16 * 1024, 256 * 1024}

	for _, size := range sizes {
		payload := randBytes(size)

		b.Run(fmt.Sprintf("%s/size=%d", name, size), func(b *testing.B) {
			b.ReportAllocs()

			for i := 0; b.Loop(); i++ {
				key := fmt.Sprintf("bench-%s-%d", name, i%8)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}
			}
		})
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := randBytes(1024)

	var ctr uint64

	b.Run(name+"/parallel", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				// 连字符保证键对 NATS KV 合法
				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
