package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"github.com/zkceremony/coordinator/log"
)

// GCS is a BlobStore backed by Google Cloud Storage, the object-storage
// client used by ceremony deployments in the retrieval pack (transitively
// depended on via poaiw-blockchain-paw's go.mod).
type GCS struct {
	client *storage.Client
}

// NewGCS creates a GCS-backed BlobStore using application-default
// credentials.
func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blobstore: creating GCS client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Download implements BlobStore.
func (g *GCS) Download(ctx context.Context, bucket, path, localFile string) error {
	r, err := g.client.Bucket(bucket).Object(path).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("blobstore: open %s/%s: %w", bucket, path, err)
	}
	defer r.Close()

	f, err := os.Create(localFile)
	if err != nil {
		return fmt.Errorf("blobstore: create %s: %w", localFile, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("blobstore: download %s/%s: %w", bucket, path, err)
	}
	log.Debugw("blobstore: downloaded object", "bucket", bucket, "path", path, "local", localFile)
	return nil
}

// Delete implements BlobStore.
func (g *GCS) Delete(ctx context.Context, bucket, path string) error {
	if err := g.client.Bucket(bucket).Object(path).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("blobstore: delete %s/%s: %w", bucket, path, err)
	}
	log.Debugw("blobstore: deleted object", "bucket", bucket, "path", path)
	return nil
}
