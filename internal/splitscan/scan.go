package splitscan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/frantjc/splitmerge/android"
	"github.com/frantjc/splitmerge/apktool"
	"github.com/frantjc/splitmerge/internal/splitregexp"
	xslice "github.com/frantjc/x/slice"
	"github.com/go-logr/logr"
	"github.com/gobwas/glob"
)

const (
	LibDir       = "lib"
	ResDir       = "res"
	ValuesDir    = "values"
	PublicXML    = "public.xml"
	DrawablesXML = "drawables.xml"
	StringsXML   = "strings.xml"
	StylesXML    = "styles.xml"

	// SplitConfigPrefix prefixes the directory name of
	// every split decoded from a split_config.*.apk.
	SplitConfigPrefix = "split_config."
)

// ErrNoBase is returned by Scan when the working
// directory does not contain a base module.
var ErrNoBase = errors.New("no base module found")

type ScanOpts struct {
	BaseModuleName string
	Exclude        []string
}

type ScanOpt func(*ScanOpts)

func WithBaseModuleName(name string) ScanOpt {
	return func(o *ScanOpts) {
		o.BaseModuleName = name
	}
}

// WithExclude leaves base module resources whose path relative to the
// base module matches any of the given glob patterns out of
// BaseFiles.Resources.
func WithExclude(patterns ...string) ScanOpt {
	return func(o *ScanOpts) {
		o.Exclude = append(o.Exclude, patterns...)
	}
}

// Scan classifies every immediate subdirectory of root as the base module
// or a split and plans where each split's files belong in the base module.
// Directories are visited in lexical order.
func Scan(ctx context.Context, root string, opts ...ScanOpt) (*Inventory, error) {
	var (
		log = logr.FromContextOrDiscard(ctx)
		o   = &ScanOpts{BaseModuleName: android.BaseModuleName}
	)

	for _, opt := range opts {
		opt(o)
	}

	exclude, err := compileGlobs(o.Exclude)
	if err != nil {
		return nil, err
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var (
		inv     = &Inventory{Root: root}
		baseDir = filepath.Join(root, o.BaseModuleName)
		found   = false
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !entry.IsDir() {
			continue
		}

		var (
			name = entry.Name()
			dir  = filepath.Join(root, name)
		)

		if name == o.BaseModuleName {
			log.V(1).Info("found base module", "dir", dir)

			if inv.Base, err = scanBase(dir, exclude); err != nil {
				return nil, err
			}

			found = true
			continue
		}

		log.V(1).Info("found split module", "dir", dir)
		inv.Splits = append(inv.Splits, dir)

		abis, err := scanAbis(name, dir, baseDir)
		if err != nil {
			return nil, err
		}
		inv.Abis = append(inv.Abis, abis...)

		langs, err := scanLanguages(name, dir, baseDir)
		if err != nil {
			return nil, err
		}
		inv.Languages = append(inv.Languages, langs...)

		density, err := scanDensity(name, dir, baseDir, langs)
		if err != nil {
			return nil, err
		} else if density != nil {
			inv.Densities = append(inv.Densities, *density)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w in %s", ErrNoBase, root)
	}

	return inv, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}

		globs = append(globs, g)
	}

	return globs, nil
}

func scanBase(dir string, exclude []glob.Glob) (BaseFiles, error) {
	values := filepath.Join(dir, ResDir, ValuesDir)
	base := BaseFiles{
		Dir:          dir,
		PublicXML:    filepath.Join(values, PublicXML),
		DrawablesXML: filepath.Join(values, DrawablesXML),
		StringsXML:   filepath.Join(values, StringsXML),
		StylesXML:    filepath.Join(values, StylesXML),
		Manifest:     filepath.Join(dir, android.AndroidManifestName),
		Metadata:     filepath.Join(dir, apktool.MetadataName),
	}

	err := filepath.WalkDir(filepath.Join(dir, ResDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		for _, g := range exclude {
			if g.Match(rel) {
				return nil
			}
		}

		base.Resources = append(base.Resources, path)

		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return base, err
	}

	return base, nil
}

// readDir is os.ReadDir that treats a missing directory as empty.
func readDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	return entries, err
}

func listDir(dir string) ([]string, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}

	return xslice.Map(entries, func(entry fs.DirEntry, _ int) string {
		return filepath.Join(dir, entry.Name())
	}), nil
}

func scanAbis(module, dir, baseDir string) ([]AbiEntry, error) {
	entries, err := readDir(filepath.Join(dir, LibDir))
	if err != nil {
		return nil, err
	}

	abis := []AbiEntry{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sources, err := listDir(filepath.Join(dir, LibDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		abis = append(abis, AbiEntry{
			Module: module,
			ABI:    entry.Name(),
			Relocation: Relocation{
				Sources:     sources,
				Destination: filepath.Join(baseDir, LibDir, entry.Name()),
			},
		})
	}

	return abis, nil
}

func scanLanguages(module, dir, baseDir string) ([]LanguageEntry, error) {
	entries, err := readDir(filepath.Join(dir, ResDir))
	if err != nil {
		return nil, err
	}

	langs := []LanguageEntry{}
	for _, entry := range entries {
		if !entry.IsDir() || !splitregexp.IsLanguageDir(entry.Name()) {
			continue
		}

		valuesDir := filepath.Join(dir, ResDir, entry.Name())
		if _, err := os.Stat(filepath.Join(valuesDir, StringsXML)); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, err
		}

		sources, err := listDir(valuesDir)
		if err != nil {
			return nil, err
		}

		langs = append(langs, LanguageEntry{
			Module:    module,
			Qualifier: splitregexp.Qualifier(entry.Name()),
			PublicXML: filepath.Join(dir, ResDir, ValuesDir, PublicXML),
			Relocation: Relocation{
				Sources:     sources,
				Destination: filepath.Join(baseDir, ResDir, entry.Name()),
			},
		})
	}

	return langs, nil
}

func scanDensity(module, dir, baseDir string, langs []LanguageEntry) (*DensityEntry, error) {
	entries, err := readDir(filepath.Join(dir, ResDir))
	if err != nil {
		return nil, err
	}

	hasDrawables := false
	for _, entry := range entries {
		if entry.IsDir() && splitregexp.IsDrawableDir(entry.Name()) {
			hasDrawables = true
			break
		}
	}

	if !hasDrawables {
		return nil, nil
	}

	claimed := xslice.Map(langs, func(lang LanguageEntry, _ int) string {
		return lang.Relocation.Destination
	})

	density := &DensityEntry{
		Module:    module,
		Name:      strings.TrimPrefix(module, SplitConfigPrefix),
		PublicXML: filepath.Join(dir, ResDir, ValuesDir, PublicXML),
	}

	for _, entry := range entries {
		if !entry.IsDir() || !(splitregexp.IsDrawableDir(entry.Name()) || splitregexp.IsValuesDir(entry.Name())) {
			continue
		}

		destination := filepath.Join(baseDir, ResDir, entry.Name())
		if xslice.Includes(claimed, destination) {
			continue
		}

		sources, err := listDir(filepath.Join(dir, ResDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		density.Relocations = append(density.Relocations, Relocation{
			Sources:     sources,
			Destination: destination,
		})
	}

	return density, nil
}
