package permission_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/internal/permission"
	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
)

// fakeProvider 可控的授权提供者.
type fakeProvider struct {
	status    permission.Status
	statusErr error
	answer    bool
	asked     int
}

func (f *fakeProvider) Status(context.Context) (permission.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeProvider) Request(context.Context) (bool, error) {
	f.asked++
	if f.answer {
		f.status = permission.Status{Granted: true}
	}

	return f.answer, nil
}

func TestGateStartsUnknown(t *testing.T) {
	g := permission.NewGate(&fakeProvider{})
	assert.False(t, g.IsReady())
	assert.False(t, g.HasPermission())
}

func TestCheckFailureIsDenied(t *testing.T) {
	g := permission.NewGate(&fakeProvider{statusErr: errors.New("boom"), status: permission.Status{Granted: true}})

	assert.False(t, g.Check(context.Background()))
	assert.True(t, g.IsReady())
	assert.False(t, g.HasPermission())
}

func TestRequestAlreadyGranted(t *testing.T) {
	p := &fakeProvider{status: permission.Status{Granted: true}}
	g := permission.NewGate(p)

	res := g.Request(context.Background())
	assert.True(t, res.Granted)
	assert.Equal(t, 0, p.asked)
	assert.True(t, g.HasPermission())
}

func TestRequestPromptsWhenAllowed(t *testing.T) {
	p := &fakeProvider{status: permission.Status{CanAskAgain: true}, answer: true}
	g := permission.NewGate(p)

	res := g.Request(context.Background())
	assert.True(t, res.Granted)
	assert.False(t, res.OpenSettings)
	assert.Equal(t, 1, p.asked)
	assert.True(t, g.HasPermission())
}

func TestRequestCannotAskAgainNeverPrompts(t *testing.T) {
	p := &fakeProvider{status: permission.Status{CanAskAgain: false}, answer: true}
	g := permission.NewGate(p)

	res := g.Request(context.Background())
	assert.False(t, res.Granted)
	assert.True(t, res.OpenSettings)
	assert.Equal(t, 0, p.asked)
	assert.True(t, g.IsReady())
	assert.False(t, g.HasPermission())
}

// scriptedPrompter 按顺序返回预设答案.
type scriptedPrompter struct {
	answers []bool
	asked   int
}

func (s *scriptedPrompter) Confirm(context.Context, string) (bool, error) {
	a := s.answers[s.asked]
	s.asked++

	return a, nil
}

func TestConsentProviderStopsAskingAfterMaxRefusals(t *testing.T) {
	ctx := context.Background()
	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	prompter := &scriptedPrompter{answers: []bool{false, false}}
	provider := permission.NewConsentProvider(store, "", prompter, 2)
	g := permission.NewGate(provider)

	assert.False(t, g.Request(ctx).Granted)
	assert.False(t, g.Request(ctx).Granted)

	res := g.Request(ctx)
	assert.True(t, res.OpenSettings)
	assert.Equal(t, 2, prompter.asked)

	require.NoError(t, provider.Grant(ctx))
	assert.True(t, g.Check(ctx))

	require.NoError(t, provider.Revoke(ctx))
	st, err := provider.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Granted)
	assert.True(t, st.CanAskAgain)

	require.NoError(t, provider.Reset(ctx))
	c, err := provider.Consent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Refusals)
}

func TestTerminalPrompter(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"y":     true,
	}

	for input, want := range cases {
		var out bytes.Buffer

		p := permission.NewTerminalPrompter(strings.NewReader(input), &out)
		got, err := p.Confirm(context.Background(), "ok?")
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
		assert.Contains(t, out.String(), "ok? [y/N]")
	}
}
