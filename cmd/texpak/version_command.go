package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/update"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version and optionally check for updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "texpak %s\n", version)
			if !check {
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Update.Enabled {
				fmt.Fprintln(out, "Update checks are disabled in the configuration.")
				return nil
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			checker, err := update.NewChecker(version,
				update.WithBaseURL(cfg.Update.APIBaseURL),
				update.WithRepository(cfg.Update.Repository),
				update.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			checkCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Update.TimeoutSeconds)*time.Second)
			defer cancel()
			rel, err := checker.Check(checkCtx)
			if err != nil {
				return err
			}
			if rel == nil {
				fmt.Fprintln(out, "texpak is up to date.")
				return nil
			}
			fmt.Fprintf(out, "texpak %s is available (%s).\n", rel.Version, rel.URL)
			if rel.Asset != nil {
				fmt.Fprintf(out, "Download: %s (%s)\n", rel.Asset.DownloadURL, humanize.IBytes(uint64(max(rel.Asset.Size, 0))))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
