// Package archive mirrors exported media into a blob bucket after upload,
// so facilities keep a retrievable copy of everything sent for review.
// Buckets are addressed by gocloud URL: file://, s3:// or gs://.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

// Store mirrors files into one bucket.
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket at bucketURL.
func Open(ctx context.Context, bucketURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("archive: open bucket %s: %w", bucketURL, err)
	}
	return &Store{bucket: bucket}, nil
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// BatchRef locates one upload batch inside the bucket.
type BatchRef struct {
	Project string
	Date    string // YYYY-MM-DD
	BatchID string
}

func (r BatchRef) dir() string {
	return path.Join(r.Project, r.Date, r.BatchID)
}

// Put copies the local file into the batch directory, keyed by its base
// name.
func (s *Store) Put(ctx context.Context, ref BatchRef, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := path.Join(ref.dir(), filepath.Base(localPath))
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("archive: create writer for %s: %w", key, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("archive: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: close writer for %s: %w", key, err)
	}
	return nil
}

// Manifest summarizes one archived batch.
type Manifest struct {
	Project   string      `json:"project"`
	BatchID   string      `json:"batch_id"`
	Files     []FileEntry `json:"files"`
	CreatedAt time.Time   `json:"created_at"`
}

// FileEntry describes one archived file and its remote asset.
type FileEntry struct {
	Name    string `json:"name"`
	Size    int64  `json:"byte_size"`
	AssetID string `json:"asset_id,omitempty"`
}

// WriteManifest stores the batch manifest as _manifest.json next to the
// archived files.
func (s *Store) WriteManifest(ctx context.Context, ref BatchRef, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode manifest: %w", err)
	}
	key := path.Join(ref.dir(), "_manifest.json")
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("archive: write %s: %w", key, err)
	}
	return nil
}
