package gcs

import (
	"context"
)

// ObjectReader provides an interface for reading objects from cloud storage.
// This interface enables mocking and testing of storage functionality.
type ObjectReader interface {
	// ReadObject downloads the bytes of bucket/object.
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// Location is a parsed gs:// URI.
type Location struct {
	Bucket string
	Object string
}

func (l Location) String() string {
	return "gs://" + l.Bucket + "/" + l.Object
}
