// Package gcs loads source documents from Cloud Storage or the local disk.
package gcs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// Fetcher resolves a document URI to its bytes. gs:// URIs go through the
// object reader; anything else is read from the local filesystem.
type Fetcher struct {
	objects ObjectReader
}

// NewFetcher creates a Fetcher. objects may be nil when only local files are
// expected.
func NewFetcher(objects ObjectReader) *Fetcher {
	return &Fetcher{objects: objects}
}

// Fetch returns the document bytes. Storage failures are reported as
// retryable external read errors.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	log := logger.FromContext(ctx)

	if IsURI(uri) {
		loc, err := ParseURI(uri)
		if err != nil {
			return nil, fmt.Errorf("Fetch: %w", err)
		}
		if f.objects == nil {
			return nil, fmt.Errorf("Fetch: %s: no storage client configured", uri)
		}
		log.Debug().Str("bucket", loc.Bucket).Str("object", loc.Object).Msg("Fetching document from storage")
		data, err := f.objects.ReadObject(ctx, loc.Bucket, loc.Object)
		if err != nil {
			return nil, &domain.ExternalReadError{Op: "gcs.ReadObject " + loc.String(), Err: err}
		}
		return data, nil
	}

	p := strings.TrimPrefix(uri, "file://")
	log.Debug().Str("path", p).Msg("Reading local document")
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	return data, nil
}
