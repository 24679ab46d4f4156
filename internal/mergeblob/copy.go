package mergeblob

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// Copy writes everything read from r to key in bucket. The object
// only becomes visible once r is drained and the write is committed.
func Copy(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	return nil
}
