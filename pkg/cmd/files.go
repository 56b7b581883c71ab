package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/docshelf/pkg/internal/model"
	"github.com/yeisme/docshelf/pkg/internal/permission"
	"github.com/yeisme/docshelf/pkg/internal/service"
)

var (
	assumeYes bool

	listCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list known files",
		Aliases: []string{"list", "l"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			printRecords(cmd.OutOrStdout(), a.Library.List(service.ScopeRegistry), a.Library.IsFavorite)

			return nil
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "scan the configured folders for PDF and spreadsheet files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			report, err := a.Library.Scan(ctx, service.TriggerCLI)
			if err != nil {
				return explain(cmd, err)
			}

			w := cmd.OutOrStdout()
			for _, f := range report.Failures {
				fmt.Fprintf(w, "skipped %s: %v\n", f.Path, f.Err)
			}

			fmt.Fprintf(w, "Found %d files, %d new, %d in list (%s).\n",
				report.Found, len(report.Added), report.Total, report.Duration.Round(time.Millisecond))

			return nil
		},
	}

	addCmd = &cobra.Command{
		Use:   "add <file>...",
		Short: "import PDF or XLSX files into the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd, a)
			defer cancel()

			report, err := a.Library.Import(ctx, args)
			if err != nil {
				return explain(cmd, err)
			}

			if report.Notice == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Notice)

			return nil
		},
	}

	openCmd = &cobra.Command{
		Use:   "open <id>",
		Short: "open a file with the configured viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return openRecord(cmd, service.ScopeRegistry, args[0])
		},
	}

	rmCmd = &cobra.Command{
		Use:     "rm <id>",
		Short:   "remove a file from the list (the file itself is kept)",
		Aliases: []string{"delete", "del"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeRecord(cmd, service.ScopeRegistry, args[0])
		},
	}
)

func openRecord(cmd *cobra.Command, scope service.Scope, id string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd, a)
	defer cancel()

	res, err := a.Library.Open(ctx, scope, id)
	if err != nil {
		return explain(cmd, err)
	}

	if res.Outcome == service.OutcomeMissing {
		fmt.Fprintf(cmd.OutOrStdout(), "File not found: %s. It has been removed from the %s.\n", res.Record.Name, scope)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", res.Record.Name)

	return nil
}

func removeRecord(cmd *cobra.Command, scope service.Scope, id string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd, a)
	defer cancel()

	if !assumeYes {
		name := id
		for _, r := range a.Library.List(scope) {
			if r.ID == id {
				name = r.Name
			}
		}

		p := permission.NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

		ok, err := p.Confirm(ctx, fmt.Sprintf("Remove %s from the %s?", name, scope))
		if err != nil || !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	removed, err := a.Library.Delete(ctx, scope, id)
	if err != nil {
		return explain(cmd, err)
	}

	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the %s.\n", id, scope)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not in the %s.\n", id, scope)
	}

	return nil
}

// printRecords 输出表格和按扩展名的统计.
func printRecords(w io.Writer, records []model.FileRecord, starred func(id string) bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No files yet. Run `docshelf scan` or `docshelf add <file>`.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tKIND\tSIZE\tMODIFIED")

	for _, r := range records {
		mark := ""
		if starred != nil && starred(r.ID) {
			mark = "*"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, r.ID, r.Name, r.Kind(), r.HumanSize(), humanize.Time(r.LastModified))
	}

	_ = tw.Flush()

	counts := model.CountByExt(records)
	exts := make([]string, 0, len(counts))

	for ext := range counts {
		exts = append(exts, ext)
	}

	slices.Sort(exts)

	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		label := ext
		if label == "" {
			label = "other"
		}

		parts = append(parts, fmt.Sprintf("%s: %d", label, counts[ext]))
	}

	fmt.Fprintf(w, "\n%d files (%s)\n", len(records), strings.Join(parts, ", "))
}

// registerFilesCommands 注册文件清单相关命令.
func registerFilesCommands() {
	rmCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	rootCmd.AddCommand(listCmd, scanCmd, addCmd, openCmd, rmCmd)
}
