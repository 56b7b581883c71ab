package permission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yeisme/docshelf/pkg/internal/storage/kv"
	"github.com/yeisme/docshelf/pkg/metrics"
)

// DefaultConsentKey 授权记录在 KV 中的键.
const DefaultConsentKey = "@docshelf_permission"

// Consent 持久化的授权记录.
type Consent struct {
	Granted   bool      `json:"granted"`
	Refusals  int       `json:"refusals"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Prompter 向用户提问.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ConsentProvider 基于 KV 的授权提供者. 连续拒绝 maxPrompts 次后不再询问，
// 只能通过 Grant 恢复.
type ConsentProvider struct {
	store      kv.KVStore
	key        string
	prompter   Prompter
	maxPrompts int
	now        func() time.Time
}

// NewConsentProvider 创建授权提供者，key 为空时使用 DefaultConsentKey.
func NewConsentProvider(store kv.KVStore, key string, prompter Prompter, maxPrompts int) *ConsentProvider {
	if key == "" {
		key = DefaultConsentKey
	}

	if maxPrompts < 1 {
		maxPrompts = 1
	}

	return &ConsentProvider{
		store:      store,
		key:        key,
		prompter:   prompter,
		maxPrompts: maxPrompts,
		now:        time.Now,
	}
}

// Consent 读取当前记录，不存在时为零值.
func (p *ConsentProvider) Consent(ctx context.Context) (Consent, error) {
	c, _, err := kv.GetJSON[Consent](ctx, p.store, p.key)
	if err != nil {
		return Consent{}, fmt.Errorf("read consent: %w", err)
	}

	return c, nil
}

func (p *ConsentProvider) Status(ctx context.Context) (Status, error) {
	c, err := p.Consent(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{Granted: c.Granted, CanAskAgain: !c.Granted && c.Refusals < p.maxPrompts}, nil
}

func (p *ConsentProvider) Request(ctx context.Context) (bool, error) {
	if p.prompter == nil {
		return false, fmt.Errorf("no prompter configured")
	}

	c, err := p.Consent(ctx)
	if err != nil {
		return false, err
	}

	ok, err := p.prompter.Confirm(ctx, "Allow docshelf to read your document folders?")
	if err != nil {
		metrics.PermissionPrompts.WithLabelValues("error").Inc()
		return false, fmt.Errorf("prompt: %w", err)
	}

	if ok {
		metrics.PermissionPrompts.WithLabelValues("granted").Inc()
		c.Granted = true
		c.Refusals = 0
	} else {
		metrics.PermissionPrompts.WithLabelValues("denied").Inc()
		c.Refusals++
	}

	return ok, p.save(ctx, c)
}

// Grant 手动授权.
func (p *ConsentProvider) Grant(ctx context.Context) error {
	return p.save(ctx, Consent{Granted: true})
}

// Revoke 撤销授权，之后仍然可以再次询问.
func (p *ConsentProvider) Revoke(ctx context.Context) error {
	return p.save(ctx, Consent{})
}

// Reset 删除授权记录.
func (p *ConsentProvider) Reset(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("reset consent: %w", err)
	}

	return nil
}

func (p *ConsentProvider) save(ctx context.Context, c Consent) error {
	c.UpdatedAt = p.now()
	if err := kv.SetJSON(ctx, p.store, p.key, c, 0); err != nil {
		return fmt.Errorf("save consent: %w", err)
	}

	return nil
}

// TerminalPrompter 在终端上询问 y/N.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter 创建终端询问器.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (t *TerminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(t.out, "%s [y/N]: ", question)

	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
