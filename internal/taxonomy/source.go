package taxonomy

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source opens a dump for streaming. Implementations must return a fresh
// reader positioned at the start of the dump on every call.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads a dump from the local filesystem.
type FileSource string

// Open implements Source.
func (f FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	// #nosec G304 -- dump paths come from operator configuration
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	return file, nil
}

func (f FileSource) String() string { return string(f) }
