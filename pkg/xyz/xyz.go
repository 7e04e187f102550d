// Package xyz parses and validates XYZ coordinate payloads: an atom count
// line, a free-text comment line, then one "symbol x y z" line per atom.
package xyz

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Atom is one atomic position in angstrom.
type Atom struct {
	Symbol  string
	X, Y, Z float64
}

// Structure is a parsed XYZ payload.
type Structure struct {
	Comment string
	Atoms   []Atom
}

// ParseError reports the 1-based line at which a payload is invalid.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xyz line %d: %s", e.Line, e.Msg)
}

// Parse validates text and returns its structure. The atom count must be a
// non-negative integer followed by exactly that many atom lines; trailing
// blank lines are allowed. Extra columns after the coordinates are ignored.
func Parse(text string) (*Structure, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimRight(sc.Text(), "\r"), true
	}

	header, ok := next()
	if !ok {
		return nil, &ParseError{Line: 1, Msg: "missing atom count"}
	}
	count, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || count < 0 {
		return nil, &ParseError{Line: line, Msg: fmt.Sprintf("invalid atom count %q", strings.TrimSpace(header))}
	}

	comment, ok := next()
	if !ok {
		return nil, &ParseError{Line: 2, Msg: "missing comment line"}
	}

	s := &Structure{Comment: comment, Atoms: make([]Atom, 0, count)}
	for len(s.Atoms) < count {
		l, ok := next()
		if !ok {
			return nil, &ParseError{Line: line + 1, Msg: fmt.Sprintf("expected %d atoms, found %d", count, len(s.Atoms))}
		}
		atom, err := parseAtom(l)
		if err != nil {
			return nil, &ParseError{Line: line, Msg: err.Error()}
		}
		s.Atoms = append(s.Atoms, atom)
	}

	for {
		l, ok := next()
		if !ok {
			break
		}
		if strings.TrimSpace(l) != "" {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("unexpected content after %d atoms", count)}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read xyz: %w", err)
	}

	return s, nil
}

func parseAtom(l string) (Atom, error) {
	fields := strings.Fields(l)
	if len(fields) < 4 {
		return Atom{}, fmt.Errorf("expected symbol and 3 coordinates, got %d fields", len(fields))
	}
	var coords [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Atom{}, fmt.Errorf("invalid coordinate %q", fields[i+1])
		}
		coords[i] = v
	}
	return Atom{Symbol: fields[0], X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// Formula returns element counts in first-seen order, e.g. "H2O" for the
// atoms H, O, H.
func (s *Structure) Formula() string {
	counts := make(map[string]int)
	var order []string
	for _, a := range s.Atoms {
		if counts[a.Symbol] == 0 {
			order = append(order, a.Symbol)
		}
		counts[a.Symbol]++
	}
	var b strings.Builder
	for _, sym := range order {
		b.WriteString(sym)
		if n := counts[sym]; n > 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}
