package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/repack"
	"github.com/meigma/texpak/internal/restore"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var (
		dirFlag string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Undo texpak changes in a game directory",
		Long: "Restore puts replaced chunks back from their backups and removes patch chunks\n" +
			"written by texpak. Patches followed by later patches become placeholders.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.gameDir(dirFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			unlock, err := repack.LockDir(dir)
			if err != nil {
				return err
			}
			defer unlock()

			engine := restore.New(restore.WithLogger(logger))
			scan, err := engine.Scan(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(scan.Candidates) == 0 {
				fmt.Fprintln(out, "Nothing to restore.")
				return nil
			}
			if dryRun {
				rows := make([][]string, 0, len(scan.Candidates))
				for _, c := range scan.Candidates {
					rows = append(rows, []string{c.Path, c.Target.String()})
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Action"}, rows, nil))
				return nil
			}

			report, applyErr := engine.Apply(cmd.Context(), scan)
			rows := make([][]string, 0, len(report.Outcomes))
			for _, o := range report.Outcomes {
				note := ""
				if o.Err != nil {
					note = o.Err.Error()
				}
				rows = append(rows, []string{o.Path, o.Action.String(), note})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"File", "Result", "Note"}, rows, nil))
			}
			fmt.Fprintf(out, "Restored %d, removed %d, placeholders %d, skipped %d.\n",
				report.Count(restore.ActionRestored),
				report.Count(restore.ActionDeleted),
				report.Count(restore.ActionPlaceholder),
				report.Count(restore.ActionSkipped))
			return applyErr
		},
	}

	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Game directory holding the chunk files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list what would be restored")
	return cmd
}
