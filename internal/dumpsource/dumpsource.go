// Package dumpsource turns configured dump locations into taxonomy sources.
//
// A location is one of:
//
//	/path/to/lineage.dmp      local file
//	blob://ncbi/lineage.dmp   key in the configured blob store
//	s3://bucket/ncbi/lineage.dmp  object in an S3 bucket
package dumpsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"taxoncore/internal/blob"
	"taxoncore/internal/taxonomy"
)

const (
	schemeBlob = "blob://"
	schemeS3   = "s3://"
)

// BlobSource streams a dump stored under Key.
type BlobSource struct {
	Store blob.Store
	Key   string
	name  string
}

// Open implements taxonomy.Source.
func (b BlobSource) Open(ctx context.Context) (io.ReadCloser, error) {
	_, rc, err := b.Store.Get(ctx, b.Key)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", b.String(), err)
	}
	return rc, nil
}

func (b BlobSource) String() string {
	if b.name != "" {
		return b.name
	}
	return string(b.Store.Driver()) + "://" + b.Key
}

// Locator resolves locations. Store backs blob:// locations; S3 opens a store
// for the bucket named in an s3:// location.
type Locator struct {
	Store blob.Store
	S3    func(ctx context.Context, bucket string) (blob.Store, error)
}

// NewLocator returns a Locator whose s3:// buckets share base settings
// (region, endpoint, credentials).
func NewLocator(store blob.Store, base blob.S3Config) Locator {
	return Locator{
		Store: store,
		S3: func(ctx context.Context, bucket string) (blob.Store, error) {
			cfg := base
			cfg.Bucket = bucket
			return blob.NewS3(ctx, cfg)
		},
	}
}

// Source resolves location. An empty location is a missing configuration
// value named by key.
func (l Locator) Source(ctx context.Context, key, location string) (taxonomy.Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, &taxonomy.MissingConfigurationError{Key: key}
	case strings.HasPrefix(location, schemeBlob):
		k := strings.TrimPrefix(location, schemeBlob)
		if l.Store == nil {
			return nil, fmt.Errorf("%s: blob store not configured for %s", key, location)
		}
		if k == "" {
			return nil, fmt.Errorf("%s: empty blob key in %s", key, location)
		}
		return BlobSource{Store: l.Store, Key: k, name: location}, nil
	case strings.HasPrefix(location, schemeS3):
		bucket, k, ok := strings.Cut(strings.TrimPrefix(location, schemeS3), "/")
		if !ok || bucket == "" || k == "" {
			return nil, fmt.Errorf("%s: s3 location must be s3://bucket/key, got %s", key, location)
		}
		if l.S3 == nil {
			return nil, fmt.Errorf("%s: s3 access not configured for %s", key, location)
		}
		store, err := l.S3(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return BlobSource{Store: store, Key: k, name: location}, nil
	default:
		return taxonomy.FileSource(location), nil
	}
}
