package taxonomy

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by single-shot scans and merged-id lookups that reach
// the end of a dump without a match.
var ErrNotFound = errors.New("taxonomy: identifier not found in dump")

// ErrCacheUnusable wraps the original failure when a cache whose population
// aborted is used again.
var ErrCacheUnusable = errors.New("taxonomy: cache population failed; cache is unusable")

// MalformedRecordError reports a dump line that could not be parsed. It is
// fatal for the scan in progress.
type MalformedRecordError struct {
	Source string // dump the line came from, when known
	LineNo int    // 1-based line number, 0 when parsed outside a scan
	Line   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.LineNo > 0 {
		return fmt.Sprintf("malformed record at %s:%d: %s: %q", e.Source, e.LineNo, e.Reason, e.Line)
	}
	return fmt.Sprintf("malformed record: %s: %q", e.Reason, e.Line)
}

// InvalidTaxIDError is returned when an identifier resolves neither directly
// nor through a merged redirection. Callers may skip the affected entry.
type InvalidTaxIDError struct {
	TaxID int64
}

func (e *InvalidTaxIDError) Error() string {
	return fmt.Sprintf("invalid taxid: %d", e.TaxID)
}

// MissingConfigurationError reports an absent required configuration value.
type MissingConfigurationError struct {
	Key string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Key)
}

// IsInvalidTaxID reports whether err is a per-identifier resolution miss.
func IsInvalidTaxID(err error) bool {
	var target *InvalidTaxIDError
	return errors.As(err, &target)
}

// IsDataCorruption reports whether err means the reference data itself is
// corrupt, as opposed to an identifier simply being unknown.
func IsDataCorruption(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}
