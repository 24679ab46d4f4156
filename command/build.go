package command

import (
	"fmt"
	"path/filepath"

	"github.com/frantjc/splitmerge/apktool"
	"github.com/spf13/cobra"
)

func newBuild(flags *configFlags) *cobra.Command {
	var (
		output string
		cmd    = &cobra.Command{
			Use:   "build [-o APK] DIR",
			Short: "Build the merged base module of a working directory",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := flags.load(cmd)
				if err != nil {
					return err
				}

				var (
					ctx  = cmd.Context()
					base = filepath.Join(args[0], cfg.Base)
				)

				if output == "" {
					output = filepath.Join(args[0], cfg.Base+".apk")
				}

				if err := apktool.Command(cfg.APKTool).Build(ctx, base, &apktool.BuildOpts{
					Force:      true,
					OutputFile: output,
				}); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Builder: %q built to %q\n", base, output)

				return nil
			},
		}
	)

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to write the .apk to (default DIR/<base>.apk)")

	return cmd
}
