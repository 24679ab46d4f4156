package command

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/frantjc/splitmerge"
	"github.com/frantjc/splitmerge/internal/mergeerr"
	xslice "github.com/frantjc/x/slice"
	"github.com/spf13/cobra"
)

const (
	// EnvVerbose, when truthy, raises verbosity to its maximum.
	EnvVerbose = "SPLITMERGE_VERBOSE"
)

func isTruthy(s string) bool {
	return xslice.Includes([]string{"1", "y", "yes", "true", "t"}, strings.ToLower(s))
}

// SetCommon gives cmd the flags, logger and version
// template shared by every splitmerge command.
func SetCommon(cmd *cobra.Command, version string) *cobra.Command {
	var verbosity int
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "V", fmt.Sprintf("Verbosity for %s.", cmd.Name()))
	cmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if isTruthy(os.Getenv(EnvVerbose)) {
			verbosity = 2
		}

		cmd.SetContext(splitmerge.WithLogger(cmd.Context(), splitmerge.NewLogger(cmd.ErrOrStderr(), verbosity)))
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return mergeerr.ExitCodeError(err, mergeerr.ExitCodeUsage)
	})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.Version = version
	cmd.SetVersionTemplate("{{ .Name }}{{ .Version }} " + runtime.Version() + "\n")

	return cmd
}

// usageArgs wraps a cobra.PositionalArgs so that
// its failures exit with ExitCodeUsage.
func usageArgs(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		return mergeerr.ExitCodeError(args(cmd, a), mergeerr.ExitCodeUsage)
	}
}

// configFlags are the flags that override the configuration file.
type configFlags struct {
	config  string
	base    string
	exclude []string
	jobs    int
	backup  string
	apktool string
}

func (f *configFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&f.config, "config", "c", "", "Configuration file (default "+splitmerge.ConfigName+" if present)")
	flags.StringVar(&f.base, "base", "", "Directory name of the base module")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "Glob of base module resources to leave untouched")
	flags.IntVarP(&f.jobs, "jobs", "j", 0, "Split identifier tables to parse at once")
	flags.StringVar(&f.backup, "backup", "", "URL of a bucket to back up rewritten files to")
	flags.StringVar(&f.apktool, "apktool", "", "The apktool executable")
}

// load reads the configuration file and applies any flags set on cmd over it.
func (f *configFlags) load(cmd *cobra.Command) (*splitmerge.Config, error) {
	cfg, err := splitmerge.LoadConfig(f.config)
	if err != nil {
		return nil, mergeerr.ExitCodeError(err, mergeerr.ExitCodeUsage)
	}

	flags := cmd.Flags()
	if flags.Changed("base") {
		cfg.Base = f.base
	}

	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}

	if flags.Changed("jobs") {
		cfg.Jobs = f.jobs
	}

	if flags.Changed("backup") {
		cfg.Backup = f.backup
	}

	if flags.Changed("apktool") {
		cfg.APKTool = f.apktool
	}

	if err := cfg.Validate(); err != nil {
		return nil, mergeerr.ExitCodeError(err, mergeerr.ExitCodeUsage)
	}

	splitmerge.LoggerFrom(cmd.Context()).V(1).Info("loaded configuration", "base", cfg.Base, "jobs", cfg.Jobs, "exclude", cfg.Exclude)

	return cfg, nil
}
