package command

import (
	"fmt"

	"github.com/frantjc/splitmerge"
	"github.com/frantjc/splitmerge/android"
	"github.com/spf13/cobra"
)

func newDecode(flags *configFlags) *cobra.Command {
	var (
		dir string
		cmd = &cobra.Command{
			Use:   "decode [-o DIR] APK...",
			Short: "Decode the modules of a split application into a working directory",
			Args:  usageArgs(cobra.MinimumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				cfg, err := flags.load(cmd)
				if err != nil {
					return err
				}

				var (
					log  = splitmerge.LoggerFrom(ctx)
					base = false
				)

				for _, name := range args {
					decoder := android.NewAPKDecoder(name,
						android.WithAPKTool(cfg.APKTool),
						android.WithDir(dir),
						android.WithBaseModuleName(cfg.Base),
					)

					decoded, err := decoder.Decode(ctx)
					if err != nil {
						return err
					}

					manifest, err := decoder.Manifest(ctx)
					if err != nil {
						return err
					}

					isBase, err := decoder.IsBase(ctx)
					if err != nil {
						return err
					}
					base = base || isBase

					fmt.Fprintf(cmd.OutOrStdout(), "Decoder: %q decoded to %q (%s)\n", name, decoded, manifest.Package())
				}

				if !base {
					log.Info("no base module among the decoded APKs, merging will fail until one is decoded into " + dir)
				}

				return nil
			},
		}
	)

	cmd.Flags().StringVarP(&dir, "output", "o", ".", "Working directory to decode into")

	return cmd
}
