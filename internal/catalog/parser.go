package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// elementLineLen is the fixed width of a TLE element line.
const elementLineLen = 69

type numberedLine struct {
	num  int // 1-based line number in the source
	text string
}

// Parse reads a TLE catalog from r and pairs its lines into records. Blank
// lines are ignored. Any malformed or incomplete record aborts the parse with
// a *ParseError; field-level decoding is left to the propagation engine.
func Parse(r io.Reader, framing Framing) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	var lines []numberedLine
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r\n\t ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, numberedLine{num: n, text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if len(lines) == 0 {
		return nil, &ParseError{Reason: "catalog is empty"}
	}

	var records []Record
	for i := 0; i < len(lines); {
		named := false
		switch framing {
		case FramingThreeLine:
			named = true
		case FramingTwoLine:
			named = false
		default:
			named = !isElementLine(lines[i].text, '1')
		}

		need := 2
		if named {
			need = 3
		}
		if i+need > len(lines) {
			return nil, &ParseError{
				Line:   lines[i].num,
				Reason: fmt.Sprintf("incomplete record: expected %d lines, found %d", need, len(lines)-i),
			}
		}

		var name string
		if named {
			if isElementLine(lines[i].text, '1') || isElementLine(lines[i].text, '2') {
				return nil, &ParseError{Line: lines[i].num, Reason: "expected a name line, found an element line"}
			}
			name = strings.TrimSpace(lines[i].text)
			i++
		}

		rec, err := pair(name, lines[i], lines[i+1])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		i += 2
	}

	return records, nil
}

// ParseString is Parse over an in-memory catalog.
func ParseString(s string, framing Framing) ([]Record, error) {
	return Parse(strings.NewReader(s), framing)
}

// DetectFraming inspects the first non-blank line of raw: a catalog that
// opens with an element line is two-line framed, anything else three-line.
// Mixed catalogs still need FramingAuto.
func DetectFraming(raw string) Framing {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isElementLine(line, '1') {
			return FramingTwoLine
		}
		return FramingThreeLine
	}
	return FramingAuto
}

func pair(name string, l1, l2 numberedLine) (Record, error) {
	line1 := strings.TrimSpace(l1.text)
	line2 := strings.TrimSpace(l2.text)

	if !isElementLine(line1, '1') {
		return Record{}, &ParseError{Line: l1.num, Reason: "expected element line 1"}
	}
	if !isElementLine(line2, '2') {
		return Record{}, &ParseError{Line: l2.num, Reason: "expected element line 2"}
	}
	if len(line1) != elementLineLen {
		return Record{}, &ParseError{Line: l1.num, Reason: fmt.Sprintf("line 1 length %d, expected %d", len(line1), elementLineLen)}
	}
	if len(line2) != elementLineLen {
		return Record{}, &ParseError{Line: l2.num, Reason: fmt.Sprintf("line 2 length %d, expected %d", len(line2), elementLineLen)}
	}

	id1, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return Record{}, &ParseError{Line: l1.num, Reason: fmt.Sprintf("invalid catalog number %q", line1[2:7])}
	}
	id2, err := strconv.Atoi(strings.TrimSpace(line2[2:7]))
	if err != nil {
		return Record{}, &ParseError{Line: l2.num, Reason: fmt.Sprintf("invalid catalog number %q", line2[2:7])}
	}
	if id1 != id2 {
		return Record{}, &ParseError{Line: l2.num, Reason: fmt.Sprintf("catalog number mismatch: line 1 has %d, line 2 has %d", id1, id2)}
	}

	return Record{
		Name:    name,
		NoradID: id1,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

func isElementLine(s string, num byte) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && s[0] == num && s[1] == ' '
}
