package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// StorageReader reads objects with the Cloud Storage client. It assumes
// Application Default Credentials are configured (gcloud auth
// application-default login).
type StorageReader struct {
	client *storage.Client
}

// NewStorageReader creates a reader with its own storage client.
func NewStorageReader(ctx context.Context) (*StorageReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &StorageReader{client: client}, nil
}

// Close closes the storage client.
func (r *StorageReader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ReadObject downloads the bytes of bucket/object.
func (r *StorageReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadObject: opening %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ReadObject: reading bytes: %w", err)
	}
	return data, nil
}

// IsURI reports whether uri points at cloud storage.
func IsURI(uri string) bool {
	return strings.HasPrefix(uri, "gs://")
}

// ParseURI splits a gs://bucket/path/to/object URI.
func ParseURI(uri string) (Location, error) {
	if !IsURI(uri) {
		return Location{}, fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return Location{Bucket: parts[0], Object: parts[1]}, nil
}

// Filename extracts the file name from a gs:// URI or a local path.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func Filename(uri string) string {
	if loc, err := ParseURI(uri); err == nil {
		return path.Base(loc.Object)
	}
	return path.Base(uri)
}
