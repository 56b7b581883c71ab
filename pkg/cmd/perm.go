package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	permCmd = &cobra.Command{
		Use:     "perm",
		Short:   "file access permission commands",
		Aliases: []string{"permission"},
	}

	permStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "show whether docshelf may read your document folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			st, err := a.Consent.Status(ctx)
			if err != nil {
				return explain(cmd, err)
			}

			c, _ := a.Consent.Consent(ctx)
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "granted:       %t\n", st.Granted)
			fmt.Fprintf(w, "can ask again: %t\n", st.CanAskAgain)
			fmt.Fprintf(w, "refusals:      %d/%d\n", c.Refusals, a.Config.Permission.MaxPrompts)
			fmt.Fprintf(w, "enforced:      %t\n", a.Config.Permission.Enforce)

			return nil
		},
	}

	permRequestCmd = &cobra.Command{
		Use:   "request",
		Short: "ask for permission to read your document folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			res := a.Gate.Request(ctx)

			switch {
			case res.Granted:
				fmt.Fprintln(cmd.OutOrStdout(), "Permission granted.")
			case res.OpenSettings:
				fmt.Fprintln(cmd.OutOrStdout(), "docshelf will not ask again. Run `docshelf perm grant` to allow access.")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Permission denied.")
			}

			return nil
		},
	}

	permGrantCmd = &cobra.Command{
		Use:   "grant",
		Short: "allow access without asking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if err := a.Consent.Grant(cmd.Context()); err != nil {
				return explain(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Permission granted.")

			return nil
		},
	}

	permRevokeCmd = &cobra.Command{
		Use:   "revoke",
		Short: "withdraw access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if err := a.Consent.Revoke(cmd.Context()); err != nil {
				return explain(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Permission revoked.")

			return nil
		},
	}

	permResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "forget the stored decision and refusal count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if err := a.Consent.Reset(cmd.Context()); err != nil {
				return explain(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Permission decision cleared.")

			return nil
		},
	}
)

// registerPermissionCommands 注册授权相关命令.
func registerPermissionCommands() {
	permCmd.AddCommand(permStatusCmd, permRequestCmd, permGrantCmd, permRevokeCmd, permResetCmd)
	rootCmd.AddCommand(permCmd)
}
