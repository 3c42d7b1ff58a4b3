package core

import (
	"slices"
	"strings"
)

// coreColumns are the columns every row is expected to carry.
var coreColumns = []string{ColProgramName, ColCourseName, ColSubjectName, ColQuestionText}

// HeaderCheck lists header problems found before rows are processed.
// Neither list stops the run.
type HeaderCheck struct {
	Missing []string
	Unknown []string
}

// InspectHeaders compares a file's headers with the known columns.
func InspectHeaders(headers []string) HeaderCheck {
	var check HeaderCheck
	for _, col := range coreColumns {
		if !slices.Contains(headers, col) {
			check.Missing = append(check.Missing, col)
		}
	}
	for _, h := range headers {
		if !slices.Contains(Headers, h) {
			check.Unknown = append(check.Unknown, h)
		}
	}
	return check
}

// Warnings renders the check as report lines.
func (c HeaderCheck) Warnings() []string {
	var out []string
	if len(c.Missing) > 0 {
		out = append(out, "Missing columns: "+strings.Join(c.Missing, ", "))
	}
	if len(c.Unknown) > 0 {
		out = append(out, "Ignored columns: "+strings.Join(c.Unknown, ", "))
	}
	return out
}
