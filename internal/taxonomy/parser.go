package taxonomy

import (
	"strconv"
	"strings"

	"taxoncore/pkg/domain"
)

const (
	lineageFields = 11
	mergedFields  = 3
	fieldSep      = "|"
)

// ParseLineage parses one lineage dump line:
//
//	id | name | species | genus | family | order | class | phylum | kingdom | superkingdom |
//
// The trailing field is ignored. Empty ranks become domain.UnknownRank and the
// species rank keeps only the last whitespace-separated token.
func ParseLineage(line string) (domain.Lineage, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != lineageFields {
		return domain.Lineage{}, &MalformedRecordError{Line: line, Reason: "expected 11 fields, got " + strconv.Itoa(len(fields))}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return domain.Lineage{}, &MalformedRecordError{Line: line, Reason: "invalid taxid " + strconv.Quote(fields[0])}
	}
	return domain.Lineage{
		TaxID:        id,
		Name:         fields[1],
		Species:      lastToken(orUnknown(fields[2])),
		Genus:        orUnknown(fields[3]),
		Family:       orUnknown(fields[4]),
		Order:        orUnknown(fields[5]),
		Class:        orUnknown(fields[6]),
		Phylum:       orUnknown(fields[7]),
		Kingdom:      orUnknown(fields[8]),
		Superkingdom: orUnknown(fields[9]),
	}, nil
}

// ParseMerged parses one merged dump line: old | new |.
func ParseMerged(line string) (domain.Merge, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != mergedFields {
		return domain.Merge{}, &MalformedRecordError{Line: line, Reason: "expected 3 fields, got " + strconv.Itoa(len(fields))}
	}
	oldID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return domain.Merge{}, &MalformedRecordError{Line: line, Reason: "invalid old taxid " + strconv.Quote(strings.TrimSpace(fields[0]))}
	}
	newID, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return domain.Merge{}, &MalformedRecordError{Line: line, Reason: "invalid new taxid " + strconv.Quote(strings.TrimSpace(fields[1]))}
	}
	return domain.Merge{Old: oldID, New: newID}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return domain.UnknownRank
	}
	return s
}

// lastToken strips genus prefixes from binomial names ("Homo sapiens" -> "sapiens").
func lastToken(s string) string {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return s
	}
	return parts[len(parts)-1]
}
