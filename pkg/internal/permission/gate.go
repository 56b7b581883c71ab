// Package permission 管理文件访问授权.
//
// Gate 的状态从 unknown 开始，Check 或 Request 之后变为 granted 或 denied.
// IsReady 表示已经有了结论，与 HasPermission 是两回事.
package permission

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	nlog "github.com/yeisme/docshelf/pkg/log"
)

// Status 授权提供者返回的状态.
type Status struct {
	Granted bool
	// CanAskAgain 为 false 时不能再询问用户，只能到设置中授权
	CanAskAgain bool
}

// Provider 授权来源.
type Provider interface {
	Status(ctx context.Context) (Status, error)
	// Request 询问用户，返回是否同意
	Request(ctx context.Context) (bool, error)
}

// RequestResult Request 的结果.
type RequestResult struct {
	Granted bool
	// OpenSettings 不能再询问时为 true，调用方应提示用户手动授权
	OpenSettings bool
}

// Gate 授权状态机.
type Gate struct {
	provider Provider
	mu       sync.Mutex
	ready    bool
	granted  bool
	logger   zerolog.Logger
}

// NewGate 创建授权门.
func NewGate(provider Provider) *Gate {
	return &Gate{provider: provider, logger: nlog.Component("permission")}
}

// Check 查询当前状态，任何错误都视为拒绝.
func (g *Gate) Check(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, err := g.provider.Status(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("status check failed, treating as denied")
	}

	g.ready = true
	g.granted = err == nil && st.Granted

	return g.granted
}

// Request 已授权直接返回；可以询问时询问并采用结果；否则保持拒绝并提示去设置.
func (g *Gate) Request(ctx context.Context) RequestResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() { g.ready = true }()

	st, err := g.provider.Status(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("status check failed, treating as denied")

		g.granted = false

		return RequestResult{}
	}

	if st.Granted {
		g.granted = true
		return RequestResult{Granted: true}
	}

	if !st.CanAskAgain {
		g.granted = false
		return RequestResult{OpenSettings: true}
	}

	ok, err := g.provider.Request(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("permission request failed")

		ok = false
	}

	g.granted = ok

	return RequestResult{Granted: ok}
}

// IsReady 是否已有结论.
func (g *Gate) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.ready
}

// HasPermission 最近一次结论是否为已授权.
func (g *Gate) HasPermission() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.granted
}
