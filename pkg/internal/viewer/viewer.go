// Package viewer 把文件交给外部程序显示.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/model"
	nlog "github.com/yeisme/docshelf/pkg/log"
)

// ErrNoCommand 查看器没有配置命令.
var ErrNoCommand = errors.New("viewer command is empty")

// Viewer 显示一个文件.
type Viewer interface {
	View(ctx context.Context, uri, name string) error
}

// Command 运行外部程序，参数中的 {uri} 与 {name} 被替换.
type Command struct {
	Args []string
	// Wait 为 false 时启动后立即返回
	Wait bool

	logger zerolog.Logger
}

// NewCommand 创建命令查看器.
func NewCommand(args []string, wait bool) *Command {
	return &Command{Args: args, Wait: wait, logger: nlog.Component("viewer")}
}

// Expand 返回替换占位符后的参数.
func (c *Command) Expand(uri, name string) []string {
	r := strings.NewReplacer("{uri}", uri, "{name}", name)

	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = r.Replace(a)
	}

	return out
}

func (c *Command) View(ctx context.Context, uri, name string) error {
	args := c.Expand(uri, name)
	if len(args) == 0 || args[0] == "" {
		return ErrNoCommand
	}

	c.logger.Debug().Strs("args", args).Bool("wait", c.Wait).Msg("launch viewer")

	if c.Wait {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
		}

		return nil
	}

	// 不等待时查看器的生命周期与 ctx 无关，命令返回后它继续运行
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}

	if err := cmd.Process.Release(); err != nil {
		c.logger.Debug().Err(err).Msg("release viewer process")
	}

	return nil
}

// Dispatcher 按文档类型选择查看器，表格交给 Spreadsheet，其余交给 PDF.
type Dispatcher struct {
	PDF         Viewer
	Spreadsheet Viewer
}

// NewDispatcher 按 viewer 配置创建分派器.
func NewDispatcher(cfg configs.ViewerConfig) *Dispatcher {
	return &Dispatcher{
		PDF:         NewCommand(cfg.PDF, cfg.Wait),
		Spreadsheet: NewCommand(cfg.Spreadsheet, cfg.Wait),
	}
}

// For 返回记录对应的查看器.
func (d *Dispatcher) For(kind model.Kind) Viewer {
	if kind == model.KindSpreadsheet {
		return d.Spreadsheet
	}

	return d.PDF
}

// View 按文件名推断类型后显示.
func (d *Dispatcher) View(ctx context.Context, uri, name string) error {
	return d.For(model.KindOf(name)).View(ctx, uri, name)
}
