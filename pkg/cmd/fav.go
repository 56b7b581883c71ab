package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/docshelf/pkg/internal/service"
)

var (
	favCmd = &cobra.Command{
		Use:     "fav",
		Short:   "favorites commands",
		Aliases: []string{"favorites"},
	}

	favListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list favorites",
		Aliases: []string{"list", "l"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			printRecords(cmd.OutOrStdout(), a.Library.List(service.ScopeFavorites), nil)

			return nil
		},
	}

	favAddCmd = &cobra.Command{
		Use:   "add <id>",
		Short: "add a listed file to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			added, err := a.Library.AddFavorite(ctx, args[0])
			if err != nil {
				return explain(cmd, err)
			}

			if !added {
				fmt.Fprintln(cmd.OutOrStdout(), "This file is already in your favorites.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Added to favorites.")

			return nil
		},
	}

	favRmCmd = &cobra.Command{
		Use:     "rm <id>",
		Short:   "remove a file from favorites",
		Aliases: []string{"delete", "del"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeRecord(cmd, service.ScopeFavorites, args[0])
		},
	}

	favOpenCmd = &cobra.Command{
		Use:   "open <id>",
		Short: "open a favorite with the configured viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return openRecord(cmd, service.ScopeFavorites, args[0])
		},
	}
)

// registerFavoritesCommands 注册收藏相关命令.
func registerFavoritesCommands() {
	favRmCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	favCmd.AddCommand(favListCmd, favAddCmd, favRmCmd, favOpenCmd)
	rootCmd.AddCommand(favCmd)
}
