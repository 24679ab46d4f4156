package splitmerge

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/frantjc/splitmerge/android"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigName is the file LoadConfig looks for in
	// the working directory when not given one.
	ConfigName = "splitmerge.yaml"
)

type Config struct {
	// Base is the directory name of the base module.
	Base string `yaml:"base,omitempty"`
	// Exclude holds glob patterns of base module resources,
	// relative to the base module, to leave untouched.
	Exclude []string `yaml:"exclude,omitempty"`
	// Jobs bounds how many split identifier tables are parsed at once.
	Jobs int `yaml:"jobs,omitempty"`
	// Backup is the URL of a bucket to snapshot files to before they
	// are rewritten, e.g. file:///var/backups/splitmerge.
	Backup string `yaml:"backup,omitempty"`
	// APKTool is the apktool executable.
	APKTool string `yaml:"apktool,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Base:    android.BaseModuleName,
		Jobs:    runtime.GOMAXPROCS(0),
		APKTool: "apktool",
	}
}

// LoadConfig reads the yaml configuration at name over DefaultConfig.
// With no name, ConfigName is read if it exists and DefaultConfig is
// returned if it does not.
func LoadConfig(name string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := name != ""
	if !explicit {
		name = ConfigName
	}

	b, err := os.ReadFile(name)
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && len(bytes.TrimSpace(b)) > 0 {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return cfg, nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	errs := []error{}

	if c.Base == "" {
		errs = append(errs, fmt.Errorf("base module name is required"))
	} else if strings.ContainsAny(c.Base, `/\`) {
		errs = append(errs, fmt.Errorf("invalid base module name %s", c.Base))
	}

	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("invalid jobs %d", c.Jobs))
	}

	for _, pattern := range c.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("invalid exclude pattern %s: %w", pattern, err))
		}
	}

	if c.APKTool == "" {
		errs = append(errs, fmt.Errorf("apktool executable is required"))
	}

	return errors.Join(errs...)
}
