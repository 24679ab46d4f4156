// Package relocate moves the files a split owns into the base module.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/frantjc/splitmerge/internal/resxml"
	"github.com/frantjc/splitmerge/internal/splitscan"
	"github.com/go-logr/logr"
	"github.com/opencontainers/go-digest"
)

// Action is what happened to one relocated file.
type Action int

const (
	// Moved files were moved as is.
	Moved Action = iota
	// Stripped XML files had their placeholders removed on the way.
	Stripped
	// Discarded XML files held nothing but placeholders.
	Discarded
)

func (a Action) String() string {
	switch a {
	case Moved:
		return "moved"
	case Stripped:
		return "stripped"
	case Discarded:
		return "discarded"
	}

	return "unknown"
}

// Result describes one relocated file.
type Result struct {
	Source      string
	Destination string
	Action      Action
}

// Relocate creates rel's destination and relocates each of its sources
// into it in order. XML files have placeholders stripped and are dropped
// if nothing else remains; anything else is moved. Sources are gone once
// relocated. Relocation stops at the first failure, leaving the files
// relocated so far where they landed.
func Relocate(ctx context.Context, rel splitscan.Relocation) ([]Result, error) {
	log := logr.FromContextOrDiscard(ctx)

	if err := os.MkdirAll(rel.Destination, 0o755); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rel.Sources))
	for _, source := range rel.Sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := Result{
			Source:      source,
			Destination: filepath.Join(rel.Destination, filepath.Base(source)),
		}

		if isXML(source) {
			kept, err := resxml.StripPlaceholders(source, rel.Destination)
			if err != nil {
				return results, err
			}

			if err := os.Remove(source); err != nil {
				return results, err
			}

			result.Action = Stripped
			if !kept {
				result.Action = Discarded
				result.Destination = ""
			}
		} else if err := Move(source, result.Destination); err != nil {
			return results, err
		}

		log.V(1).Info("relocated", "source", result.Source, "destination", result.Destination, "action", result.Action.String())
		results = append(results, result)
	}

	return results, nil
}

func isXML(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.Mode().IsRegular() && strings.EqualFold(filepath.Ext(name), ".xml")
}

// Move renames src to dst. When they are on different devices, src is
// copied to a temporary file beside dst, verified against src's digest
// and renamed into place before src is removed, so dst is never seen
// partially written.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	fi, err := os.Stat(src)
	if err != nil {
		return err
	} else if fi.IsDir() {
		return moveDir(src, dst)
	}

	return moveFile(src, dst, fi.Mode().Perm())
}

func moveDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		if err := Move(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}

	return os.Remove(src)
}

func moveFile(src, dst string, perm os.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	var (
		digester = digest.Canonical.Digester()
		w        = io.MultiWriter(tmp, digester.Hash())
	)

	if _, err := io.Copy(w, f); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := verify(tmp.Name(), digester.Digest()); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}

	return os.Remove(src)
}

func verify(name string, expected digest.Digest) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	verifier := expected.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return err
	}

	if !verifier.Verified() {
		return fmt.Errorf("copy does not match digest %s", expected)
	}

	return nil
}
