package command

import (
	"fmt"

	"github.com/frantjc/splitmerge/internal/mergeblob"
	"github.com/frantjc/splitmerge/internal/mergeerr"
	"github.com/spf13/cobra"
	"gocloud.dev/blob"
)

func newRestore(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore --backup URL RUN DIR",
		Short: "Restore the files a merge backed up",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ctx   = cmd.Context()
				runID = args[0]
				dir   = args[1]
			)

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			if cfg.Backup == "" {
				return mergeerr.ExitCodeError(fmt.Errorf("--backup is required"), mergeerr.ExitCodeUsage)
			}

			bucket, err := blob.OpenBucket(ctx, cfg.Backup)
			if err != nil {
				return err
			}
			defer bucket.Close()

			restored, err := mergeblob.Restore(ctx, bucket, runID, dir)
			for _, name := range restored {
				fmt.Fprintf(cmd.OutOrStdout(), "Restorer: %q restored\n", name)
			}

			return err
		},
	}
}
