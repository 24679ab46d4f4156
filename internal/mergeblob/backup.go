// Package mergeblob snapshots the files of a base module that a merge
// rewrites into a bucket, and puts them back.
package mergeblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/frantjc/splitmerge/internal/resxml"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gopkg.in/yaml.v3"
)

// Digests maps slash-separated paths relative to the
// working directory to the digest of their content.
type Digests map[string]digest.Digest

// Paths returns the keys of d in lexical order.
func (d Digests) Paths() []string {
	paths := make([]string, 0, len(d))
	for p := range d {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Backup copies each of names that exists, all of which must be under
// root, into bucket under runID and records their digests there.
func Backup(ctx context.Context, bucket *blob.Bucket, runID, root string, names ...string) (Digests, error) {
	digests := Digests{}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(root, name)
		if err != nil {
			return nil, err
		} else if !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("back up %s: not in %s", name, root)
		}

		rel = filepath.ToSlash(rel)
		if _, ok := digests[rel]; ok {
			continue
		}

		dig, err := backup(ctx, bucket, FileKey(runID, rel), name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("back up %s: %w", name, err)
		}

		digests[rel] = dig
	}

	b, err := yaml.Marshal(digests)
	if err != nil {
		return nil, err
	}

	if err := bucket.WriteAll(ctx, DigestsKey(runID), b, nil); err != nil {
		return nil, err
	}

	return digests, nil
}

func backup(ctx context.Context, bucket *blob.Bucket, key, name string) (digest.Digest, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digester := digest.Canonical.Digester()
	if err := Copy(ctx, bucket, key, io.TeeReader(f, digester.Hash())); err != nil {
		return "", err
	}

	return digester.Digest(), nil
}

// Restore writes every file backed up under runID back under root,
// verifying each against its recorded digest before it replaces
// what is there. It returns the restored paths.
func Restore(ctx context.Context, bucket *blob.Bucket, runID, root string) ([]string, error) {
	b, err := bucket.ReadAll(ctx, DigestsKey(runID))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("no backup %s", runID)
	} else if err != nil {
		return nil, err
	}

	digests := Digests{}
	if err := yaml.Unmarshal(b, &digests); err != nil {
		return nil, fmt.Errorf("parse backup %s: %w", runID, err)
	}

	restored := []string{}
	for _, rel := range digests.Paths() {
		if err := ctx.Err(); err != nil {
			return restored, err
		}

		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return restored, fmt.Errorf("restore %s: not a local path", rel)
		}

		name := filepath.Join(root, filepath.FromSlash(rel))
		if err := restore(ctx, bucket, FileKey(runID, rel), name, digests[rel]); err != nil {
			return restored, fmt.Errorf("restore %s: %w", rel, err)
		}

		restored = append(restored, name)
	}

	return restored, nil
}

func restore(ctx context.Context, bucket *blob.Bucket, key, name string, expected digest.Digest) error {
	if err := expected.Validate(); err != nil {
		return err
	}

	b, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return err
	}

	if actual := expected.Algorithm().FromBytes(b); actual != expected {
		return fmt.Errorf("digest %s does not match %s", actual, expected)
	}

	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}

	return resxml.WriteFile(name, b)
}
