package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/scanner"
	"github.com/yeisme/docshelf/pkg/internal/service"
	"github.com/yeisme/docshelf/pkg/internal/watch"
	"github.com/yeisme/docshelf/pkg/queue"
)

type triggerCounter struct {
	mu    sync.Mutex
	count map[string]int
}

func (c *triggerCounter) Scan(_ context.Context, trigger string) (service.ScanReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == nil {
		c.count = map[string]int{}
	}

	c.count[trigger]++

	return service.ScanReport{Trigger: trigger}, nil
}

func (c *triggerCounter) get(trigger string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count[trigger]
}

type fakeBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *fakeBus) Handle(_, topic string, _ message.NoPublishHandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.topics = append(b.topics, topic)
}

func (b *fakeBus) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *fakeBus) subscribed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.topics...)
}

func TestWatchRescansOnChange(t *testing.T) {
	dir := t.TempDir()
	lib := &triggerCounter{}
	bus := &fakeBus{}

	w := watch.New(lib, nil, bus, watch.Options{
		Sources:    []scanner.Source{{Path: dir, Label: "Documents"}},
		Extensions: []string{".pdf"},
		Watch: configs.WatchConfig{
			RescanCron:       "0 0 1 1 *",
			FSNotify:         true,
			RescansPerMinute: 6000,
			Burst:            1,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(bus.subscribed()) == len(queue.AllTopics) }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, lib.get(service.TriggerStartup))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.pdf"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return lib.get(service.TriggerFSNotify) >= 1 }, 5*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, queue.AllTopics, bus.subscribed())

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestTriggerDoesNotBlock(t *testing.T) {
	w := watch.New(&triggerCounter{}, nil, nil, watch.Options{})

	w.Trigger()
	w.Trigger()
	w.Trigger()
}
