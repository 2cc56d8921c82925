package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/chunk"
	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/internal/repack"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chunk files of a game directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := ctx.gameDir(dirFlag)
			if err != nil {
				return err
			}
			inv, err := repack.Discover(dir)
			if err != nil {
				return err
			}
			sel, err := inv.Selections()
			if err != nil {
				return err
			}
			defaults := make(map[string]bool)
			for _, n := range repack.DefaultSelected(sel, cfg.ThresholdBytes()) {
				defaults[n.String()] = true
			}

			rows := make([][]string, 0, len(inv.Names))
			for _, n := range inv.Names {
				size := "-"
				if fi, err := os.Stat(inv.Path(n)); err == nil {
					size = humanize.IBytes(uint64(fi.Size()))
				}
				rows = append(rows, []string{
					n.String(),
					chunkKind(n),
					size,
					originLabel(inv.Path(n)),
					yesNo(defaults[n.String()]),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No chunk files in %s.\n", dir)
			} else {
				fmt.Fprintln(out, renderTable(
					[]string{"Chunk", "Kind", "Size", "Origin", "Default"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
			}
			for _, err := range inv.Invalid {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Game directory holding the chunk files")
	return cmd
}

func chunkKind(n chunk.Name) string {
	switch {
	case n.IsSub() && n.IsPatch():
		return "sub patch"
	case n.IsSub():
		return "sub"
	case n.IsPatch():
		return "patch"
	default:
		return "base"
	}
}

// originLabel reports whether path was written by texpak.
func originLabel(path string) string {
	rec, ok, err := provenance.ReadFile(path)
	switch {
	case err != nil:
		return "unreadable"
	case !ok:
		return "game"
	case rec.IsFullPackage:
		return "texpak (full)"
	default:
		return "texpak (patch)"
	}
}
