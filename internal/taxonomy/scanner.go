package taxonomy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taxoncore/pkg/domain"
)

// DefaultProgressInterval is the number of lines between progress signals
// emitted while populating a cache.
const DefaultProgressInterval = 100_000

// maxLineBytes bounds a single dump line; lineage lines are far shorter.
const maxLineBytes = 1 << 20

// ScanKind labels a dump pass for metrics.
type ScanKind string

const (
	ScanSingleShot ScanKind = "single_shot"
	ScanPopulate   ScanKind = "populate"
	ScanMerged     ScanKind = "merged"
)

// DumpScanner streams a lineage dump line by line.
type DumpScanner struct {
	source           Source
	logger           *slog.Logger
	progressInterval int
	progress         func(lines int)
}

// NewDumpScanner returns a scanner over source. A nil logger discards output.
func NewDumpScanner(source Source, logger *slog.Logger) *DumpScanner {
	if logger == nil {
		logger = discardLogger()
	}
	return &DumpScanner{source: source, logger: logger, progressInterval: DefaultProgressInterval}
}

// Source returns the dump being scanned.
func (s *DumpScanner) Source() Source { return s.source }

// Find returns the first record whose identifier equals taxID. A malformed
// line before the match aborts the scan.
func (s *DumpScanner) Find(ctx context.Context, taxID int64) (domain.Lineage, error) {
	var found domain.Lineage
	hit := false
	_, err := scanLines(ctx, s.source, 0, nil, s.logger, func(line string) (bool, error) {
		rec, err := ParseLineage(line)
		if err != nil {
			return false, err
		}
		if rec.TaxID == taxID {
			found = rec
			hit = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return domain.Lineage{}, err
	}
	if !hit {
		return domain.Lineage{}, ErrNotFound
	}
	return found, nil
}

// Each parses every line of the dump and hands each record to fn, returning
// the number of lines read. The first parse failure aborts the pass.
func (s *DumpScanner) Each(ctx context.Context, fn func(domain.Lineage)) (int, error) {
	return scanLines(ctx, s.source, s.progressInterval, s.progress, s.logger, func(line string) (bool, error) {
		rec, err := ParseLineage(line)
		if err != nil {
			return false, err
		}
		fn(rec)
		return false, nil
	})
}

// scanLines feeds each non-blank line to fn until fn reports stop, an error
// occurs, or the dump ends. Malformed record errors are annotated with the
// source name and line number.
func scanLines(ctx context.Context, src Source, interval int, progress func(int), logger *slog.Logger, fn func(line string) (stop bool, err error)) (int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return lineNo, err
		}
		if interval > 0 && lineNo%interval == 0 {
			logger.Info("scanning dump", "source", src.String(), "lines", lineNo)
			if progress != nil {
				progress(lineNo)
			}
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stop, err := fn(line)
		if err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				mre.Source = src.String()
				mre.LineNo = lineNo
			}
			return lineNo, err
		}
		if stop {
			return lineNo, nil
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return lineNo, &MalformedRecordError{
				Source: src.String(),
				LineNo: lineNo + 1,
				Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
			}
		}
		return lineNo, fmt.Errorf("read dump %s: %w", src.String(), err)
	}
	return lineNo, nil
}
