// Package intpack converts a text file of decimal integers, one per line, into
// fixed-width big-endian two's-complement binary for loading into analysis
// tools that expect raw int16 or int32 streams.
package intpack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/lineio"
)

// Width is the encoded size of one value in bytes.
type Width int

const (
	Width16 Width = 2
	Width32 Width = 4
)

// Bits returns the width in bits.
func (w Width) Bits() int { return int(w) * 8 }

// Suffix is appended to the input path to name the output file.
func (w Width) Suffix() string {
	switch w {
	case Width16:
		return ".bin"
	case Width32:
		return ".bin32"
	}
	return fmt.Sprintf(".bin%d", w.Bits())
}

// Min and Max bound the signed range representable in w.
func (w Width) Min() int64 { return -1 << (w.Bits() - 1) }
func (w Width) Max() int64 { return 1<<(w.Bits()-1) - 1 }

func (w Width) valid() bool { return w == Width16 || w == Width32 }

// ParseError reports a line that is not a decimal integer.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: invalid integer %q", e.Line, e.Text)
}

// RangeError reports a value that does not fit the target width.
type RangeError struct {
	Line  int
	Text  string
	Width Width
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("line %d: %s out of range for int%d [%d, %d]",
		e.Line, e.Text, e.Width.Bits(), e.Width.Min(), e.Width.Max())
}

// ParseLines reads one signed decimal integer per line, surrounding whitespace
// ignored, checking each against the range of w.
func ParseLines(r io.Reader, w Width) ([]int64, error) {
	if !w.valid() {
		return nil, fmt.Errorf("unsupported width %d", w)
	}

	var (
		values   []int64
		valueErr error
	)
	err := lineio.Each(r, func(lineNo int, line string) error {
		text := strings.TrimSpace(line)
		v, err := strconv.ParseInt(text, 10, w.Bits())
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				valueErr = &RangeError{Line: lineNo, Text: text, Width: w}
			} else {
				valueErr = &ParseError{Line: lineNo, Text: text}
			}
			return valueErr
		}
		values = append(values, v)
		return nil
	})
	if valueErr != nil {
		return nil, valueErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	return values, nil
}

// Encode packs values big-endian at width w. Values must already be in range.
func Encode(values []int64, w Width) ([]byte, error) {
	if !w.valid() {
		return nil, fmt.Errorf("unsupported width %d", w)
	}
	out := make([]byte, 0, len(values)*int(w))
	for i, v := range values {
		if v < w.Min() || v > w.Max() {
			return nil, &RangeError{Line: i + 1, Text: strconv.FormatInt(v, 10), Width: w}
		}
		if w == Width16 {
			out = binary.BigEndian.AppendUint16(out, uint16(int16(v)))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(int32(v)))
		}
	}
	return out, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte, w Width) ([]int64, error) {
	if !w.valid() {
		return nil, fmt.Errorf("unsupported width %d", w)
	}
	if len(data)%int(w) != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of %d", len(data), w)
	}
	out := make([]int64, 0, len(data)/int(w))
	for off := 0; off < len(data); off += int(w) {
		if w == Width16 {
			out = append(out, int64(int16(binary.BigEndian.Uint16(data[off:]))))
		} else {
			out = append(out, int64(int32(binary.BigEndian.Uint32(data[off:]))))
		}
	}
	return out, nil
}

// PackFile reads path, packs its values and writes them in one write to
// path+w.Suffix(). Nothing is written if any line fails.
func PackFile(fsys fsutil.FileSystem, path string, w Width) (string, int, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open input: %w", err)
	}
	values, err := ParseLines(f, w)
	f.Close()
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", path, err)
	}

	buf, err := Encode(values, w)
	if err != nil {
		return "", 0, err
	}

	outPath := path + w.Suffix()
	if err := fsys.WriteFile(outPath, buf, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return outPath, len(values), nil
}
