package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/docshelf/pkg/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "keep running: rescan on schedule and on folder changes, log events, serve metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 常驻模式不在终端询问授权
		a, err := loadApp(cmd, app.WithPrompter(nil))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return a.Watch(ctx)
	},
}

// registerWatchCommands 注册常驻模式命令.
func registerWatchCommands() {
	rootCmd.AddCommand(watchCmd)
}
