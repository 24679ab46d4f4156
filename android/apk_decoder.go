package android

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/frantjc/splitmerge/apktool"
)

const (
	// BaseModuleName is the directory name a decoded base module
	// is conventionally given.
	BaseModuleName = "base"
	// SplitModulePrefix prefixes the directory name of every
	// decoded split module, e.g. "split_config.arm64_v8a".
	SplitModulePrefix = "split_"
)

// ModuleName returns the directory name conventionally given to the
// module that manifest belongs to.
func ModuleName(manifest *Manifest, base string) string {
	if split := manifest.Split(); split != "" {
		return SplitModulePrefix + split
	}

	return base
}

// APKDecoder decodes one module of a split application into its
// conventionally named directory under a working directory.
type APKDecoder struct {
	Name string

	apktool  string
	dir      string
	base     string
	decoded  string
	manifest *Manifest
}

type APKDecoderOpt func(*APKDecoder)

func WithAPKTool(b string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.apktool = b
	}
}

func WithDir(dir string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.dir = dir
	}
}

func WithBaseModuleName(base string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.base = base
	}
}

func NewAPKDecoder(name string, opts ...APKDecoderOpt) *APKDecoder {
	ad := &APKDecoder{Name: name, apktool: "apktool", base: BaseModuleName}

	for _, opt := range opts {
		opt(ad)
	}

	if ad.dir == "" {
		ad.dir = filepath.Dir(name)
	}

	return ad
}

// Decode runs apktool against the .apk, then moves the result into a
// directory named after the module per ModuleName, replacing any
// previous decoding of the same module. It returns that directory.
func (a *APKDecoder) Decode(ctx context.Context) (string, error) {
	if a.decoded != "" {
		return a.decoded, nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.MkdirTemp(a.dir, ".decode-*")
	if err != nil {
		return "", err
	}

	opts := &apktool.DecodeOpts{
		Force:           true,
		NoSources:       true,
		OutputDirectory: tmp,
	}

	if err := apktool.Command(a.apktool).Decode(ctx, a.Name, opts); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	manifest, err := ReadManifest(filepath.Join(tmp, AndroidManifestName))
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", fmt.Errorf("read manifest of %s: %w", a.Name, err)
	}

	dir := filepath.Join(a.dir, ModuleName(manifest, a.base))
	if err := os.RemoveAll(dir); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	a.decoded = dir
	a.manifest = manifest

	return dir, nil
}

func (a *APKDecoder) Manifest(ctx context.Context) (*Manifest, error) {
	if _, err := a.Decode(ctx); err != nil {
		return nil, err
	}

	return a.manifest, nil
}

// IsBase reports whether the decoded module is the base module.
func (a *APKDecoder) IsBase(ctx context.Context) (bool, error) {
	manifest, err := a.Manifest(ctx)
	if err != nil {
		return false, err
	}

	return manifest.Split() == "", nil
}

// String returns the name of the module once decoded and
// the name of the .apk before.
func (a *APKDecoder) String() string {
	if a.decoded != "" {
		return filepath.Base(a.decoded)
	}

	return strings.TrimSuffix(filepath.Base(a.Name), filepath.Ext(a.Name))
}
