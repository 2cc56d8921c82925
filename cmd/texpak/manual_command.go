package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/texpak/internal/config"
	"github.com/meigma/texpak/internal/repack"
)

func newManualCommand(ctx *commandContext) *cobra.Command {
	var (
		fileListFlag string
		full         bool
		noClone      bool
	)

	cmd := &cobra.Command{
		Use:   "manual <container.pak>...",
		Short: "Repack individual containers next to themselves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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
			clone := cfg.Repack.CloneAttributes && !noClone

			results := make([]repack.ChunkResult, 0, len(args))
			for _, arg := range args {
				input, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				res, err := r.Manual(cmd.Context(), input, full, clone)
				if err != nil {
					printResults(cmd.OutOrStdout(), results)
					return fmt.Errorf("%s: %w", input, err)
				}
				results = append(results, res)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileListFlag, "file-list", "", "Path to the name list")
	cmd.Flags().BoolVar(&full, "full", false, "Carry every entry, not only textures")
	cmd.Flags().BoolVar(&noClone, "no-clone-attributes", false, "Use default attributes for rewritten entries")
	return cmd
}
