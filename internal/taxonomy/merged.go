package taxonomy

import (
	"context"
	"log/slog"
)

// MergedIndex resolves retired identifiers through the merged dump. Nothing is
// cached: each call rescans the dump, which only happens on cache misses.
type MergedIndex struct {
	source Source
	logger *slog.Logger
}

// NewMergedIndex returns an index over the merged dump.
func NewMergedIndex(source Source, logger *slog.Logger) *MergedIndex {
	if logger == nil {
		logger = discardLogger()
	}
	return &MergedIndex{source: source, logger: logger}
}

// Resolve returns the replacement identifier declared for old.
func (m *MergedIndex) Resolve(ctx context.Context, old int64) (int64, error) {
	var replacement int64
	hit := false
	_, err := scanLines(ctx, m.source, 0, nil, m.logger, func(line string) (bool, error) {
		merge, err := ParseMerged(line)
		if err != nil {
			return false, err
		}
		if merge.Old == old {
			replacement = merge.New
			hit = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	if !hit {
		return 0, ErrNotFound
	}
	return replacement, nil
}
