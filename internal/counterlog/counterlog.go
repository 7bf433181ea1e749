// Package counterlog extracts the up/down cycle counters the firmware logs
// after each capacitor charge test and emits them byte by byte as CSV.
//
// A qualifying log line looks like
//
//	0.015146 INFO  up bbdefd5c down bfdff3e4
package counterlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mkj/caprand/internal/lineio"
)

// Marker is the substring a line must contain to be treated as a counter record.
const Marker = "  up"

const (
	upField   = 3
	downField = 5
)

// Header is the CSV header row.
var Header = []string{"up", "down"}

// ParseError reports a counter record that could not be parsed: a missing field,
// a token that is not bare hex (a "0x" prefix is rejected), or a value wider
// than 32 bits.
type ParseError struct {
	Line  int
	Field int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("line %d: missing counter field %d", e.Line, e.Field)
	}
	return fmt.Sprintf("line %d: field %d %q: %v", e.Line, e.Field, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Pair is one byte position of the up and down counters.
type Pair struct {
	Up   uint8
	Down uint8
}

// Record holds the two 32-bit counters from one log line.
type Record struct {
	Up   uint32
	Down uint32
}

// Pairs splits the counters into four byte pairs, least significant first.
func (r Record) Pairs() [4]Pair {
	var out [4]Pair
	for p := range out {
		shift := 8 * uint(p)
		out[p] = Pair{Up: uint8(r.Up >> shift), Down: uint8(r.Down >> shift)}
	}
	return out
}

// ParseLine returns the counters in line. ok is false for lines that do not
// carry the marker; those are skipped without error.
func ParseLine(lineNo int, line string) (rec Record, ok bool, err error) {
	if !strings.Contains(line, Marker) {
		return Record{}, false, nil
	}

	fields := strings.Fields(line)
	up, err := hexField(lineNo, fields, upField)
	if err != nil {
		return Record{}, true, err
	}
	down, err := hexField(lineNo, fields, downField)
	if err != nil {
		return Record{}, true, err
	}
	return Record{Up: up, Down: down}, true, nil
}

func hexField(lineNo int, fields []string, idx int) (uint32, error) {
	if idx >= len(fields) {
		return 0, &ParseError{Line: lineNo, Field: idx}
	}
	v, err := strconv.ParseUint(fields[idx], 16, 32)
	if err != nil {
		return 0, &ParseError{Line: lineNo, Field: idx, Token: fields[idx], Err: err}
	}
	return uint32(v), nil
}

// Extract streams log lines from r and writes the CSV to w, flushing after
// every row. It returns the number of data rows written.
func Extract(r io.Reader, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := writeRow(cw, Header); err != nil {
		return 0, err
	}

	rows := 0
	var parseErr error
	err := lineio.Each(r, func(lineNo int, line string) error {
		rec, ok, err := ParseLine(lineNo, line)
		if err != nil {
			parseErr = err
			return err
		}
		if !ok {
			return nil
		}
		for _, p := range rec.Pairs() {
			row := []string{strconv.Itoa(int(p.Up)), strconv.Itoa(int(p.Down))}
			if err := writeRow(cw, row); err != nil {
				parseErr = err
				return err
			}
			rows++
		}
		return nil
	})
	if parseErr != nil {
		return rows, parseErr
	}
	if err != nil {
		return rows, fmt.Errorf("failed to read log: %w", err)
	}
	return rows, nil
}

func writeRow(cw *csv.Writer, row []string) error {
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
