// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yeisme/docshelf/pkg/app"
	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/service"
)

var (
	configPath string
	debug      bool

	// application 首次使用时组装，命令结束后关闭.
	application *app.App

	rootCmd = &cobra.Command{
		Use:           "docshelf",
		Short:         "List, open and bookmark the PDF and spreadsheet files on this machine",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				_ = os.Setenv(configs.EnvPrefix+"_APP_DEBUG", "true")
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application == nil {
				return nil
			}

			err := application.Close(context.Background())
			application = nil

			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCmd.RunE(cmd, args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	registerFilesCommands()
	registerFavoritesCommands()
	registerPermissionCommands()
	registerWatchCommands()
	registerConfigsCommands()
	registerKVCommands()
	registerMQCommands()
	registerDBCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadApp 组装应用，授权询问走命令的标准输入输出.
func loadApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	if application != nil {
		return application, nil
	}

	opts = append([]app.Option{app.WithTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())}, opts...)

	a, err := app.New(cmd.Context(), configPath, opts...)
	if err != nil {
		return nil, err
	}

	application = a

	return a, nil
}

// withTimeout 单次命令使用 app.timeout 作为超时.
func withTimeout(cmd *cobra.Command, a *app.App) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.Config.App.GetTimeoutDuration())
}

// explain 把业务错误转换为提示，运行时错误不影响退出码.
func explain(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	w := cmd.ErrOrStderr()

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		fmt.Fprintln(w, "Permission to read your document folders was not granted.")
		fmt.Fprintln(w, "Run `docshelf perm request` or `docshelf perm grant` to allow access.")
	case errors.Is(err, service.ErrRecordNotFound):
		fmt.Fprintln(w, "No such file in the list:", err)
	default:
		fmt.Fprintln(w, "Error:", err)
	}

	return nil
}
