package command

import (
	"github.com/frantjc/splitmerge"
	"github.com/spf13/cobra"
	"gocloud.dev/blob"
)

// NewSplitMerge returns the root command for
// splitmerge which acts as its CLI entrypoint.
func NewSplitMerge() *cobra.Command {
	var (
		flags = &configFlags{}
		cmd   = &cobra.Command{
			Use:   "splitmerge [flags] DIR",
			Short: "Merge decoded split APK modules into their base module",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					ctx = cmd.Context()
					log = splitmerge.LoggerFrom(ctx)
				)

				cfg, err := flags.load(cmd)
				if err != nil {
					return err
				}

				merger := &splitmerge.Merger{
					BaseModuleName: cfg.Base,
					Exclude:        cfg.Exclude,
					Jobs:           cfg.Jobs,
					Out:            cmd.OutOrStdout(),
				}

				if cfg.Backup != "" {
					log.Info("opening bucket " + cfg.Backup)
					bucket, err := blob.OpenBucket(ctx, cfg.Backup)
					if err != nil {
						return err
					}
					defer bucket.Close()

					merger.Bucket = bucket
				}

				return merger.Merge(ctx, args[0])
			},
		}
	)

	flags.addFlags(cmd)

	cmd.AddCommand(
		newDecode(flags),
		newBuild(flags),
		newRestore(flags),
	)

	return SetCommon(cmd, splitmerge.SemVer())
}
