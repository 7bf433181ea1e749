// Package samples loads raw noise captures from disk. The device streams one
// "%02x" sample per line over USB serial; captures are kept either as that hex
// text or already decoded to raw bytes.
package samples

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/lineio"
)

// ErrOddHex reports a hex capture with an odd number of digits.
var ErrOddHex = errors.New("odd number of hex digits")

// Options selects how a capture file is interpreted.
type Options struct {
	// Hex treats the file as whitespace-separated hex text.
	Hex bool
	// Limit truncates the capture to at most Limit bytes; 0 means no limit.
	Limit int
}

// Load reads the capture at path.
func Load(fsys fsutil.FileSystem, path string, opts Options) ([]byte, error) {
	if opts.Limit < 0 {
		return nil, fmt.Errorf("negative limit %d", opts.Limit)
	}
	if !opts.Hex {
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read capture: %w", err)
		}
		if opts.Limit > 0 && len(data) > opts.Limit {
			data = data[:opts.Limit]
		}
		return data, nil
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	data, err := DecodeHex(f, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// DecodeHex decodes plain hex text from r, ignoring whitespace, and stops once
// limit bytes are decoded (0 means read to EOF).
func DecodeHex(r io.Reader, limit int) ([]byte, error) {
	var (
		out     []byte
		pending string
	)
	err := lineio.Each(r, func(lineNo int, line string) error {
		digits := pending + stripSpace(line)
		// a pair may straddle a line break
		pending = ""
		if len(digits)%2 == 1 {
			pending = digits[len(digits)-1:]
			digits = digits[:len(digits)-1]
		}

		var err error
		out, err = AppendHex(out, digits)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			return lineio.Stop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pending != "" && (limit == 0 || len(out) < limit) {
		return nil, ErrOddHex
	}
	return out, nil
}

// AppendHex decodes the hex digits in s (whitespace ignored) and appends the
// bytes to dst.
func AppendHex(dst []byte, s string) ([]byte, error) {
	s = stripSpace(s)
	if len(s)%2 == 1 {
		return dst, ErrOddHex
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
