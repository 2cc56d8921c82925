package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/chunk"
	"github.com/meigma/texpak/internal/repack"
)

func newAutoCommand(ctx *commandContext) *cobra.Command {
	var (
		dirFlag      string
		modeFlag     string
		fileListFlag string
		chunkFlags   []string
		all          bool
		thresholdMiB int64
	)

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Repack the large sub chunks of a game directory",
		Long: "Repack rewrites the texture entries of the selected sub chunks uncompressed.\n" +
			"By default every unpatched sub chunk of at least the configured threshold is selected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := ctx.gameDir(dirFlag)
			if err != nil {
				return err
			}
			if modeFlag == "" {
				modeFlag = cfg.Repack.Mode
			}
			mode, err := repack.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			threshold := cfg.ThresholdBytes()
			if cmd.Flags().Changed("threshold") {
				threshold = thresholdMiB << 20
			}

			inv, err := repack.Discover(dir)
			if err != nil {
				return err
			}
			selected, err := selectChunks(inv, chunkFlags, all, threshold)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(selected) == 0 {
				fmt.Fprintln(out, "No chunks selected.")
				return nil
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			table, err := ctx.fileList(fileListFlag)
			if err != nil {
				return err
			}
			comp, err := outputCompression(cfg)
			if err != nil {
				return err
			}
			r := repack.New(table,
				repack.WithWorkers(cfg.Repack.Workers),
				repack.WithCompression(comp),
				repack.WithLogger(logger),
				repack.WithProgress(progressFactory(cmd.ErrOrStderr())),
			)

			results, runErr := r.Auto(cmd.Context(), dir, selected, mode)
			printResults(out, results)
			if runErr != nil {
				if errors.Is(runErr, repack.ErrLocked) {
					return fmt.Errorf("%w (is another texpak running in %s?)", runErr, dir)
				}
				return runErr
			}
			if mode == repack.ModeReplace {
				fmt.Fprintln(out, "Originals were kept with a .backup suffix; run `texpak restore` to undo.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Game directory holding the chunk files")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Output mode: patch or replace")
	cmd.Flags().StringVar(&fileListFlag, "file-list", "", "Path to the name list")
	cmd.Flags().StringSliceVar(&chunkFlags, "chunk", nil, "Chunk file name to process (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Select every unpatched sub chunk")
	cmd.Flags().Int64Var(&thresholdMiB, "threshold", 0, "Minimum size in MiB for default selection")
	cmd.MarkFlagsMutuallyExclusive("chunk", "all")
	return cmd
}

func selectChunks(inv *repack.Inventory, explicit []string, all bool, threshold int64) ([]chunk.Name, error) {
	if len(explicit) > 0 {
		names := make([]chunk.Name, 0, len(explicit))
		for _, s := range explicit {
			n, err := chunk.Parse(s)
			if err != nil {
				return nil, err
			}
			if !inv.Contains(n) {
				return nil, fmt.Errorf("%w: %s", repack.ErrUnknownChunk, s)
			}
			names = append(names, n)
		}
		return names, nil
	}
	sel, err := inv.Selections()
	if err != nil {
		return nil, err
	}
	if all {
		threshold = 0
	}
	return repack.DefaultSelected(sel, threshold), nil
}

func printResults(w io.Writer, results []repack.ChunkResult) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Source,
			r.Output,
			fmt.Sprintf("%d", r.Result.Processed),
			fmt.Sprintf("%d", r.Result.Selected),
			humanize.IBytes(r.Result.BytesWritten),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Source", "Output", "Processed", "Entries", "Written"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}
