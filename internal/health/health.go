// Package health implements the continuous health tests of NIST SP 800-90B
// section 4.4 over raw noise samples.
package health

import (
	"errors"
	"fmt"

	"github.com/mkj/caprand/internal/monitoring"
)

var (
	ErrRepetition         = errors.New("repetition count test failed")
	ErrAdaptiveProportion = errors.New("adaptive proportion test failed")
)

// Default cutoffs. The repetition cutoff of 201 corresponds to an assessed
// entropy of H = 0.1 bits per sample at alpha = 2^-20.
const (
	DefaultAPTWindow = 512
	DefaultAPTCutoff = 410
	DefaultRCTCutoff = 201
)

// RepetitionTest is the Repetition Count Test (SP 800-90B 4.4.1).
type RepetitionTest struct {
	prev   uint8
	count  int
	cutoff int
}

// NewRepetitionTest returns a test that fails once a value repeats cutoff times.
func NewRepetitionTest(cutoff int) *RepetitionTest {
	// count starts at 0 so the initial prev value doesn't matter
	return &RepetitionTest{cutoff: cutoff}
}

// Test feeds one sample.
func (t *RepetitionTest) Test(val uint8) error {
	if t.count > 0 && val == t.prev {
		t.count++
	} else {
		t.count = 1
		t.prev = val
	}
	if t.count >= t.cutoff {
		return fmt.Errorf("%w: value %d repeated %d times", ErrRepetition, val, t.count)
	}
	return nil
}

// AdaptiveProportionTest is the Adaptive Proportion Test (SP 800-90B 4.4.2).
type AdaptiveProportionTest struct {
	val     uint8 // A, value to compare
	matches int   // B, matches in the current window
	i       int   // position in the window

	window int // W
	cutoff int // C, fails when matches >= C
}

// NewAdaptiveProportionTest returns a test over windows of size window.
func NewAdaptiveProportionTest(window, cutoff int) *AdaptiveProportionTest {
	return &AdaptiveProportionTest{window: window, cutoff: cutoff}
}

// Test feeds one sample.
func (t *AdaptiveProportionTest) Test(val uint8) error {
	if t.i == 0 {
		t.val = val
		t.matches = 0
		t.i = 1
		return nil
	}

	if t.val == val {
		t.matches++
	}
	failed := t.matches >= t.cutoff
	ref, matches := t.val, t.matches

	t.i++
	if t.i == t.window {
		t.i = 0
		t.matches = 0
	}

	if failed {
		return fmt.Errorf("%w: value %d matched %d times in window of %d", ErrAdaptiveProportion, ref, matches, t.window)
	}
	return nil
}

// Config holds the cutoffs for Total.
type Config struct {
	APTWindow int
	APTCutoff int
	RCTCutoff int
}

// DefaultConfig returns the firmware's cutoffs.
func DefaultConfig() Config {
	return Config{APTWindow: DefaultAPTWindow, APTCutoff: DefaultAPTCutoff, RCTCutoff: DefaultRCTCutoff}
}

// Total runs both tests on each sample, adaptive proportion first.
type Total struct {
	adaptive   *AdaptiveProportionTest
	repetition *RepetitionTest
}

// NewTotal returns a combined test with the given cutoffs.
func NewTotal(cfg Config) *Total {
	return &Total{
		adaptive:   NewAdaptiveProportionTest(cfg.APTWindow, cfg.APTCutoff),
		repetition: NewRepetitionTest(cfg.RCTCutoff),
	}
}

// Test feeds one sample to both tests.
func (t *Total) Test(val uint8) error {
	if err := t.adaptive.Test(val); err != nil {
		return err
	}
	return t.repetition.Test(val)
}

// Report summarises a Check run.
type Report struct {
	Samples      int
	Failures     int
	Repetition   int
	Adaptive     int
	FirstOffset  int
	FirstFailure error
}

// OK reports whether every sample passed.
func (r Report) OK() bool { return r.Failures == 0 }

// Check runs a fresh Total over every sample, continuing past failures so the
// report counts them all.
func Check(data []byte, cfg Config) Report {
	t := NewTotal(cfg)
	rep := Report{Samples: len(data), FirstOffset: -1}
	for off, v := range data {
		err := t.Test(v)
		if err == nil {
			continue
		}
		rep.Failures++
		if errors.Is(err, ErrRepetition) {
			rep.Repetition++
		} else {
			rep.Adaptive++
		}
		if rep.FirstFailure == nil {
			rep.FirstOffset = off
			rep.FirstFailure = err
			monitoring.Logf("health test failed at offset %d: %v", off, err)
		}
	}
	return rep
}
