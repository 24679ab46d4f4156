// Package splitmerge merges the decoded modules of a split Android
// application back into a single base module.
package splitmerge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/frantjc/splitmerge/android"
	"github.com/frantjc/splitmerge/apktool"
	"github.com/frantjc/splitmerge/internal/mergeblob"
	"github.com/frantjc/splitmerge/internal/mergeerr"
	"github.com/frantjc/splitmerge/internal/relocate"
	"github.com/frantjc/splitmerge/internal/resolve"
	"github.com/frantjc/splitmerge/internal/splitindex"
	"github.com/frantjc/splitmerge/internal/splitscan"
	xslice "github.com/frantjc/x/slice"
	"github.com/google/uuid"
	"gocloud.dev/blob"
)

var (
	// ErrNoBase is returned by Merge when the working
	// directory does not contain a base module.
	ErrNoBase = splitscan.ErrNoBase
	// ErrIncompleteBase is returned by Merge when the base module lacks
	// its identifier table or its manifest.
	ErrIncompleteBase = errors.New("incomplete base module")
)

// Merger merges the split modules of a working directory into its
// base module. The zero value merges into "base" and reports nowhere.
type Merger struct {
	// BaseModuleName is the directory name of the base module.
	BaseModuleName string
	// Exclude holds glob patterns of base module resources to leave alone.
	Exclude []string
	// Jobs bounds how many split identifier tables are parsed at once.
	Jobs int
	// Bucket, if set, receives a snapshot of every base module file
	// before the merge rewrites it.
	Bucket *blob.Bucket
	// Out receives one line for every operation performed.
	Out io.Writer
}

func (m *Merger) reportf(format string, a ...any) {
	if m.Out != nil {
		fmt.Fprintf(m.Out, format+"\n", a...)
	}
}

// Merge merges the splits in the working directory root into its base
// module in place: the splits' files are relocated into the base module,
// the placeholders in the base module's resources are resolved, and the
// manifest no longer asks for splits. A failure part way through leaves
// whatever was already done in place.
func (m *Merger) Merge(ctx context.Context, root string) error {
	log := LoggerFrom(ctx)

	if fi, err := os.Stat(root); err != nil {
		return mergeerr.ExitCodeError(fmt.Errorf("path %s does not exist", root), mergeerr.ExitCodeUsage)
	} else if !fi.IsDir() {
		return mergeerr.ExitCodeError(fmt.Errorf("path %s is not a directory", root), mergeerr.ExitCodeUsage)
	}

	m.reportf("SplitMerger: Working on %s", root)

	opts := []splitscan.ScanOpt{splitscan.WithExclude(m.Exclude...)}
	if m.BaseModuleName != "" {
		opts = append(opts, splitscan.WithBaseModuleName(m.BaseModuleName))
	}

	inv, err := splitscan.Scan(ctx, root, opts...)
	if errors.Is(err, splitscan.ErrNoBase) {
		return mergeerr.ExitCodeError(err, mergeerr.ExitCodePrecondition)
	} else if err != nil {
		return err
	}

	for _, name := range []string{inv.Base.PublicXML, inv.Base.Manifest} {
		if ok, err := exists(name); err != nil {
			return err
		} else if !ok {
			return mergeerr.ExitCodeError(fmt.Errorf("%w: %s not found", ErrIncompleteBase, name), mergeerr.ExitCodePrecondition)
		}
	}

	m.reportInventory(inv)

	if m.Bucket != nil {
		runID := uuid.NewString()

		digests, err := mergeblob.Backup(ctx, m.Bucket, runID, inv.Root, m.backupPaths(inv)...)
		if err != nil {
			return fmt.Errorf("back up base module: %w", err)
		}

		m.reportf("Backup: %s: %d files backed up", runID, len(digests))
	}

	m.reportf("SplitMerger: Processing...")

	if err := m.relocate(ctx, inv); err != nil {
		return err
	}

	tables := inv.PublicTables()
	index, err := splitindex.Build(ctx, tables, splitindex.WithJobs(m.Jobs))
	if err != nil {
		return err
	}

	m.reportf("Merger: Parser: %d split public.xml parsed, %d identifiers indexed (%s)", len(tables), index.Len(), strings.Join(index.Types(), ", "))

	if err := m.resolve(ctx, inv, resolve.New(index)); err != nil {
		lerr := &resolve.LookupError{}
		if errors.As(err, &lerr) {
			return mergeerr.ExitCodeError(err, mergeerr.ExitCodeLookup)
		}

		return err
	}

	if changed, err := android.PatchManifest(inv.Base.Manifest); err != nil {
		return fmt.Errorf("patch manifest: %w", err)
	} else if changed {
		m.reportf("Patcher: Manifest patched")
	} else {
		m.reportf("Patcher: Manifest already patched")
	}

	if err := m.checkManifest(ctx, inv.Base.Manifest); err != nil {
		return err
	}

	if err := m.mergeMetadata(ctx, inv); err != nil {
		return err
	}

	log.V(1).Info("merged", "root", inv.Root, "splits", len(inv.Splits))
	m.reportf("SplitMerger: Splits merged")

	return nil
}

func (m *Merger) reportInventory(inv *splitscan.Inventory) {
	if len(inv.Abis) > 0 {
		m.reportf("Found splits: abis")
		for _, abi := range inv.Abis {
			m.reportf("\tFound split: %s", abi.ABI)
		}
	}

	if len(inv.Densities) > 0 {
		m.reportf("Found splits: drawables")
		for _, density := range inv.Densities {
			m.reportf("\tFound split: %s", density.Name)
		}
	}

	if len(inv.Languages) > 0 {
		m.reportf("Found splits: langs")
		for _, lang := range inv.Languages {
			m.reportf("\tFound split: %s", lang.Qualifier)
		}
	}

	m.reportf("Found splits: base")
}

// backupPaths returns every base module file the merge may rewrite,
// including those a relocated split file would replace. Backup skips
// the ones that do not exist.
func (m *Merger) backupPaths(inv *splitscan.Inventory) []string {
	paths := append([]string{
		inv.Base.Manifest,
		inv.Base.Metadata,
		inv.Base.PublicXML,
		inv.Base.DrawablesXML,
		inv.Base.StylesXML,
		inv.Base.StringsXML,
	}, inv.Base.Resources...)

	for _, planned := range inv.Relocations() {
		for _, source := range planned.Relocation.Sources {
			paths = append(paths, filepath.Join(planned.Relocation.Destination, filepath.Base(source)))
		}
	}

	return paths
}

func (m *Merger) relocate(ctx context.Context, inv *splitscan.Inventory) error {
	log := LoggerFrom(ctx)

	for _, planned := range inv.Relocations() {
		log.V(1).Info("relocating", "kind", planned.Kind.String(), "module", planned.Module, "destination", planned.Relocation.Destination)

		label := "Res " + planned.Name
		if planned.Kind == splitscan.KindAbi {
			label = "Abi " + planned.Name
		}

		results, err := relocate.Relocate(ctx, planned.Relocation)
		m.reportRelocation(label, results)
		if err != nil {
			return fmt.Errorf("relocate %s %s: %w", planned.Kind, planned.Name, err)
		}
	}

	return nil
}

func (m *Merger) reportRelocation(label string, results []relocate.Result) {
	for _, result := range results {
		switch result.Action {
		case relocate.Moved:
			m.reportf("Processor: %s: Move %q to base folder", label, result.Source)
		case relocate.Stripped:
			m.reportf("Processor: %s: Move and clear %q to base folder", label, result.Source)
		case relocate.Discarded:
			m.reportf("Processor: %s: Discard %q, nothing but placeholders", label, result.Source)
		}
	}
}

func exists(name string) (bool, error) {
	_, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return err == nil, err
}

func (m *Merger) resolve(ctx context.Context, inv *splitscan.Inventory, resolver *resolve.Resolver) error {
	n, err := resolver.Public(ctx, inv.Base.PublicXML)
	if err != nil {
		return err
	}

	m.reportf("Merger: Public: Base %s merged, %d placeholders resolved", filepath.Base(inv.Base.PublicXML), n)

	for _, pass := range []struct {
		label string
		path  string
		fn    func(context.Context, string) (int, error)
	}{
		{"Drawables", inv.Base.DrawablesXML, resolver.Drawables},
		{"Styles", inv.Base.StylesXML, resolver.Styles},
		{"Strings", inv.Base.StringsXML, resolver.Strings},
	} {
		if ok, err := exists(pass.path); err != nil {
			return err
		} else if !ok {
			m.reportf("Merger: %s: Base %s not found, skipped", pass.label, filepath.Base(pass.path))
			continue
		}

		n, err := pass.fn(ctx, pass.path)
		if err != nil {
			return err
		}

		m.reportf("Merger: %s: Base %s merged, %d placeholders resolved", pass.label, filepath.Base(pass.path), n)
	}

	for _, name := range inv.Base.Resources {
		n, err := resolver.Generic(ctx, name)
		if err != nil {
			return err
		}

		m.reportf("Merger: Values: Base %q merged, %d placeholders resolved", name, n)
	}

	m.reportf("Merger: Merging xml complete")

	return nil
}

// checkManifest warns when the patched manifest still asks for splits,
// which happens when its attributes are not in apktool's usual form.
func (m *Merger) checkManifest(ctx context.Context, name string) error {
	manifest, err := android.ReadManifest(name)
	if err != nil {
		return fmt.Errorf("read patched manifest: %w", err)
	}

	if manifest.IsSplitRequired() || len(manifest.SplitsMetadata()) > 0 {
		LoggerFrom(ctx).Info("manifest still requires splits after patching, edit it by hand",
			"manifest", name,
			"isSplitRequired", manifest.IsSplitRequired(),
			"metadata", len(manifest.SplitsMetadata()),
		)
		m.reportf("Patcher: Manifest still requires splits")
	}

	return nil
}

func (m *Merger) mergeMetadata(ctx context.Context, inv *splitscan.Inventory) error {
	log := LoggerFrom(ctx)

	if ok, err := exists(inv.Base.Metadata); err != nil {
		return err
	} else if !ok {
		log.V(1).Info("base module has no " + apktool.MetadataName + ", skipping")
		return nil
	}

	doNotCompress := []string{}
	for _, split := range inv.Splits {
		name := filepath.Join(split, apktool.MetadataName)
		if ok, err := exists(name); err != nil {
			return err
		} else if !ok {
			continue
		}

		metadata, err := apktool.ReadMetadata(name)
		if err != nil {
			return err
		}

		for _, entry := range metadata.DoNotCompress {
			if !xslice.Includes(doNotCompress, entry) {
				doNotCompress = append(doNotCompress, entry)
			}
		}
	}

	added, err := apktool.MergeDoNotCompress(inv.Base.Metadata, doNotCompress...)
	if err != nil {
		return err
	}

	if len(added) > 0 {
		m.reportf("Patcher: %s: %d doNotCompress entries merged", apktool.MetadataName, len(added))
	}

	return nil
}
