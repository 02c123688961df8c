// Package catalog loads satellite element sets. It pairs raw catalog lines
// into records (two-line or name-prefixed three-line framing) and keeps a
// cached copy of the upstream catalog with a tiered fallback chain.
package catalog

import (
	"fmt"
	"strings"
)

// Record is one satellite's element set exactly as it appeared in the
// catalog. It is immutable once parsed.
type Record struct {
	Name    string `json:"name,omitempty"`
	NoradID int    `json:"norad_id"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
}

// Label returns the record name, or its catalog number when unnamed.
func (r Record) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("NORAD %d", r.NoradID)
}

// Text renders the record back into catalog form.
func (r Record) Text() string {
	if r.Name == "" {
		return r.Line1 + "\n" + r.Line2
	}
	return r.Name + "\n" + r.Line1 + "\n" + r.Line2
}

// Framing tells the parser how records are laid out.
type Framing int

const (
	// FramingAuto decides per record: an element line 1 starts a bare
	// record, anything else is taken as a name line.
	FramingAuto Framing = iota
	// FramingTwoLine expects line 1 / line 2 pairs only.
	FramingTwoLine
	// FramingThreeLine expects name / line 1 / line 2 triplets.
	FramingThreeLine
)

func (f Framing) String() string {
	switch f {
	case FramingTwoLine:
		return "2line"
	case FramingThreeLine:
		return "3line"
	default:
		return "auto"
	}
}

// ParseFraming maps a config value onto a Framing.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FramingAuto, nil
	case "2line", "2", "two-line":
		return FramingTwoLine, nil
	case "3line", "3", "three-line":
		return FramingThreeLine, nil
	}
	return FramingAuto, fmt.Errorf("unknown catalog framing %q", s)
}

// ParseError reports a malformed or incomplete catalog record.
type ParseError struct {
	Line   int // 1-based source line, 0 when not tied to a line
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog parse error at line %d: %s", e.Line, e.Reason)
	}
	return "catalog parse error: " + e.Reason
}
