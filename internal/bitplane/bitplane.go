// Package bitplane renders a square capture as a grayscale image in which each
// pixel shows the position of the lowest set bit of the corresponding sample.
// Timing jitter in the capacitor discharge shows up in the low bits, so the
// picture makes bias and periodic structure visible at a glance.
package bitplane

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"math/bits"

	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/monitoring"
)

// NoBitsSet is the LSB index of a zero byte, which has no set bit.
const NoBitsSet = -1

// DefaultOutputPath is where the renderer writes unless told otherwise.
const DefaultOutputPath = "im.png"

// diagCount is how many leading values the diagnostic summary prints.
const diagCount = 20

// ErrDegenerateRange is returned when no sample has an LSB index above zero,
// leaving nothing to scale.
var ErrDegenerateRange = errors.New("degenerate LSB range: maximum index must be positive")

// ShapeError reports a buffer whose length is not a perfect square.
type ShapeError struct {
	Length int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("image must be square: %d bytes is not a perfect square", e.Length)
}

// ZeroPolicy decides how zero bytes (NoBitsSet) are rendered.
type ZeroPolicy int

const (
	// ZeroAlias treats a zero byte as index 0, the same shade as a byte
	// with bit 0 set.
	ZeroAlias ZeroPolicy = iota
	// ZeroDistinct renders zero bytes as black (luma 0), outside the scaled range.
	ZeroDistinct
)

// ParseZeroPolicy maps the config names "alias" and "distinct" to a ZeroPolicy.
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch s {
	case "", "alias":
		return ZeroAlias, nil
	case "distinct":
		return ZeroDistinct, nil
	}
	return ZeroAlias, fmt.Errorf("unknown zero policy %q", s)
}

func (p ZeroPolicy) String() string {
	if p == ZeroDistinct {
		return "distinct"
	}
	return "alias"
}

// Options controls the luma mapping.
type Options struct {
	LumaMin int
	LumaMax int
	Zero    ZeroPolicy
}

// MaxLuma is the largest LumaMax for which lo + max*factor, at most LumaMax+1,
// still fits a byte.
const MaxLuma = 254

// Validate checks that the luma range is non-empty and that every scaled value
// fits a byte.
func (o Options) Validate() error {
	if o.LumaMin < 0 {
		return fmt.Errorf("luma min must be non-negative, got %d", o.LumaMin)
	}
	if o.LumaMax > MaxLuma {
		return fmt.Errorf("luma max must be at most %d, got %d", MaxLuma, o.LumaMax)
	}
	if o.LumaMin >= o.LumaMax {
		return fmt.Errorf("luma min (%d) must be less than luma max (%d)", o.LumaMin, o.LumaMax)
	}
	return nil
}

// DefaultOptions returns the [50,200] luma range with zero bytes aliased.
func DefaultOptions() Options {
	return Options{LumaMin: 50, LumaMax: 200, Zero: ZeroAlias}
}

// Summary carries the values printed for operator inspection.
type Summary struct {
	Edge     int
	MaxIndex int
	Factor   int
	Zeros    int
	Indices  []int  // first diagCount LSB indices
	Luma     []byte // first diagCount output values
}

// LSBIndex returns the 0-based position of the lowest set bit of x, or
// NoBitsSet when x is zero.
func LSBIndex(x byte) int {
	if x == 0 {
		return NoBitsSet
	}
	return bits.TrailingZeros8(x)
}

// Indices maps every byte of data to its LSB index.
func Indices(data []byte) []int {
	out := make([]int, len(data))
	for i, x := range data {
		out[i] = LSBIndex(x)
	}
	return out
}

// SquareEdge returns the side length of a square with n pixels.
func SquareEdge(n int) (int, error) {
	edge := int(math.Sqrt(float64(n)))
	// float rounding can land one either side of the true root
	for edge*edge > n {
		edge--
	}
	for (edge+1)*(edge+1) <= n {
		edge++
	}
	if edge*edge != n {
		return 0, &ShapeError{Length: n}
	}
	return edge, nil
}

// Rescale maps LSB indices into luma values with lo + i*floor((hi-lo+1)/max).
// The result is not clamped; opts must pass Validate, which keeps it within a byte.
func Rescale(indices []int, opts Options) ([]byte, int, int, error) {
	if err := opts.Validate(); err != nil {
		return nil, NoBitsSet, 0, err
	}

	maxIdx := NoBitsSet
	for _, i := range indices {
		if i > maxIdx {
			maxIdx = i
		}
	}
	if maxIdx <= 0 {
		return nil, maxIdx, 0, ErrDegenerateRange
	}

	factor := (opts.LumaMax - opts.LumaMin + 1) / maxIdx
	out := make([]byte, len(indices))
	for n, i := range indices {
		if i == NoBitsSet {
			if opts.Zero == ZeroDistinct {
				out[n] = 0
				continue
			}
			i = 0
		}
		out[n] = byte(opts.LumaMin + i*factor)
	}
	return out, maxIdx, factor, nil
}

// Render validates the shape of data and builds the grayscale raster, row-major.
func Render(data []byte, opts Options) (*image.Gray, Summary, error) {
	edge, err := SquareEdge(len(data))
	if err != nil {
		return nil, Summary{}, err
	}

	indices := Indices(data)
	luma, maxIdx, factor, err := Rescale(indices, opts)
	if err != nil {
		return nil, Summary{}, err
	}

	img := image.NewGray(image.Rect(0, 0, edge, edge))
	for y := 0; y < edge; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+edge], luma[y*edge:(y+1)*edge])
	}

	sum := Summary{
		Edge:     edge,
		MaxIndex: maxIdx,
		Factor:   factor,
		Indices:  indices[:min(diagCount, len(indices))],
		Luma:     luma[:min(diagCount, len(luma))],
	}
	for _, i := range indices {
		if i == NoBitsSet {
			sum.Zeros++
		}
	}
	return img, sum, nil
}

// WriteFile renders data and writes it as a PNG to path. A partially written
// file is removed if encoding fails.
func WriteFile(fsys fsutil.FileSystem, path string, data []byte, opts Options) (Summary, error) {
	img, sum, err := Render(data, opts)
	if err != nil {
		return sum, err
	}

	monitoring.Logf("%v", sum.Indices)
	monitoring.Logf("input max is %d", sum.MaxIndex)
	monitoring.Logf("%v", sum.Luma)
	if sum.Zeros > 0 {
		monitoring.Logf("%d zero bytes rendered with %s policy", sum.Zeros, opts.Zero)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return sum, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		_ = fsys.Remove(path)
		return sum, fmt.Errorf("failed to encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return sum, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return sum, nil
}
