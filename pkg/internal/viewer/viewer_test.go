package viewer_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/viewer"
)

type recordingViewer struct {
	calls [][2]string
}

func (r *recordingViewer) View(_ context.Context, uri, name string) error {
	r.calls = append(r.calls, [2]string{uri, name})
	return nil
}

func TestExpandPlaceholders(t *testing.T) {
	c := viewer.NewCommand([]string{"open", "-a", "Preview", "{uri}", "--title={name}"}, false)

	assert.Equal(t,
		[]string{"open", "-a", "Preview", "/tmp/a b.pdf", "--title=a b.pdf"},
		c.Expand("/tmp/a b.pdf", "a b.pdf"))
}

func TestEmptyCommand(t *testing.T) {
	c := viewer.NewCommand(nil, true)
	assert.ErrorIs(t, c.View(context.Background(), "/x.pdf", "x.pdf"), viewer.ErrNoCommand)
}

func TestDispatcherByKind(t *testing.T) {
	pdf, sheet := &recordingViewer{}, &recordingViewer{}
	d := &viewer.Dispatcher{PDF: pdf, Spreadsheet: sheet}

	ctx := context.Background()
	assert.NoError(t, d.View(ctx, "/a.xlsx", "a.xlsx"))
	assert.NoError(t, d.View(ctx, "/b.PDF", "b.PDF"))
	assert.NoError(t, d.View(ctx, "/c.bin", "c.bin"))

	assert.Equal(t, [][2]string{{"/a.xlsx", "a.xlsx"}}, sheet.calls)
	assert.Equal(t, [][2]string{{"/b.PDF", "b.PDF"}, {"/c.bin", "c.bin"}}, pdf.calls)
	assert.Same(t, sheet, d.For(model.KindSpreadsheet))
}

func TestDetachedViewerOutlivesContext(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	marker := filepath.Join(t.TempDir(), "viewed")
	c := viewer.NewCommand([]string{"sh", "-c", "sleep 0.3; touch " + marker}, false)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.View(ctx, "/x.pdf", "x.pdf"))
	cancel()

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWaitingViewerReportsFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	c := viewer.NewCommand([]string{"sh", "-c", "echo broken {name} >&2; exit 3"}, true)

	err := c.View(context.Background(), "/x.pdf", "x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken x.pdf")
}
