package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	kv "github.com/yeisme/docshelf/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "list keys in the configured kv store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			keys, err := a.Storage.KV.Keys(cmd.Context(), pattern)
			if err != nil {
				return explain(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s keys matching %q:\n", a.Storage.KV.Type, pattern)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+k)
			}

			return nil
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvKeysCmd)
}
