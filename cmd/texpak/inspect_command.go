package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/config"
	"github.com/meigma/texpak/internal/filelist"
	"github.com/meigma/texpak/internal/provenance"
	"github.com/meigma/texpak/pak"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		fileListFlag string
		verify       bool
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "inspect <container.pak>",
		Short: "Show the entries and provenance of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			f, err := pak.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			// Names are optional here; a missing list only hides them.
			var table *filelist.Table
			if t, err := ctx.fileList(fileListFlag); err == nil {
				table = t
			}

			a := f.Archive()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Container: %s\n", path)
			fmt.Fprintf(out, "Version:   %d\n", a.Version())
			fmt.Fprintf(out, "Entries:   %d of %d\n", a.Len(), a.Capacity())
			fmt.Fprintf(out, "Data:      %s\n", humanize.IBytes(a.DataSize()))
			if d, ok := a.DataDigest(); ok {
				fmt.Fprintf(out, "Digest:    %s\n", d)
			}

			rec, ok, err := provenance.Read(a, f.Reader())
			switch {
			case err != nil:
				fmt.Fprintf(out, "Origin:    invalid provenance record (%v)\n", err)
			case !ok:
				fmt.Fprintln(out, "Origin:    game")
			default:
				fmt.Fprintf(out, "Origin:    texpak v%d, full package: %s\n", rec.Version, yesNo(rec.IsFullPackage))
			}

			entries := a.Entries()
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				if limit > 0 && i >= limit {
					break
				}
				rows = append(rows, []string{
					fmt.Sprintf("%016x", e.Hash),
					entryName(table, e.Hash),
					e.Compression.String(),
					humanize.IBytes(e.CompressedSize),
					humanize.IBytes(e.Size),
					strconv.FormatUint(e.Attr, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Hash", "Name", "Compression", "Stored", "Size", "Attr"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			if limit > 0 && len(entries) > limit {
				fmt.Fprintf(out, "... %d more entries\n", len(entries)-limit)
			}

			if !verify {
				return nil
			}
			return verifyContainer(cmd, path, a, f.Reader())
		},
	}

	cmd.Flags().StringVar(&fileListFlag, "file-list", "", "Path to the name list")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the data digest and every entry checksum")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to print (0 for all)")
	return cmd
}

func entryName(table *filelist.Table, hash uint64) string {
	if hash == provenance.Hash() {
		return provenance.EntryName
	}
	if table == nil {
		return ""
	}
	name, _ := table.Lookup(hash)
	return name
}

func verifyContainer(cmd *cobra.Command, path string, a *pak.Archive, r *pak.ArchiveReader) error {
	out := cmd.OutOrStdout()
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	var errs []error
	if err := a.VerifyData(fh); err != nil {
		errs = append(errs, err)
	}
	for _, e := range a.Entries() {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if _, err := r.ReadEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("verification failed: %w", errors.Join(errs...))
	}
	fmt.Fprintln(out, "Verification passed.")
	return nil
}
