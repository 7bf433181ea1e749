// Package serialcap captures raw noise samples that the device streams as hex
// text over its USB CDC serial port.
package serialcap

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/samples"
)

// DefaultReadTimeout bounds each port read so cancellation is noticed on an
// idle line.
const DefaultReadTimeout = 200 * time.Millisecond

// Options controls a capture.
type Options struct {
	// Limit stops the capture after this many bytes; 0 reads until EOF or
	// cancellation.
	Limit int
	// SkipFirst drops the first sample, which the firmware takes straight
	// after a USB write and is skewed by it.
	SkipFirst bool
	// ReadTimeout is applied to ports that support it. Zero uses DefaultReadTimeout.
	ReadTimeout time.Duration
	// ProgressEvery logs progress after each multiple of this many bytes.
	ProgressEvery int
}

// Result is what a capture produced.
type Result struct {
	Data    []byte
	Lines   int
	Skipped int // lines that were not valid hex
}

// ctxReader retries the empty reads a port returns on read timeout, so that
// bufio.Scanner never sees them, and gives up once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	for {
		n, err := c.r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if err := c.ctx.Err(); err != nil {
			return 0, err
		}
	}
}

// Capture reads hex sample lines from port until opts.Limit bytes are
// collected, the port reaches EOF, or ctx is cancelled. On cancellation the
// samples gathered so far are returned along with ctx.Err(). The caller owns
// the port and must close it.
func Capture(ctx context.Context, port SerialPorter, opts Options) (Result, error) {
	if tp, ok := port.(TimeoutSerialPorter); ok {
		timeout := opts.ReadTimeout
		if timeout == 0 {
			timeout = DefaultReadTimeout
		}
		if err := tp.SetReadTimeout(timeout); err != nil {
			return Result{}, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scan := bufio.NewScanner(ctxReader{ctx: ctx, r: port})
	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs in its own goroutine so the loop below can
	// still react to cancellation
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil && ctx.Err() == nil {
			scanErrChan <- err
		}
	}()

	var (
		res       Result
		skipFirst = opts.SkipFirst
		nextLog   = opts.ProgressEvery
	)
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()

		case err := <-scanErrChan:
			return res, err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return res, err
				default:
				}
				return res, nil
			}
			res.Lines++

			before := len(res.Data)
			data, err := samples.AppendHex(res.Data, line)
			if err != nil {
				res.Skipped++
				monitoring.Logf("skipping line %d %q: %v", res.Lines, line, err)
				continue
			}
			if skipFirst && len(data) > before {
				data = append(data[:before], data[before+1:]...)
				skipFirst = false
			}
			res.Data = data

			if opts.ProgressEvery > 0 && len(res.Data) >= nextLog {
				monitoring.Logf("captured %d bytes", len(res.Data))
				for nextLog <= len(res.Data) {
					nextLog += opts.ProgressEvery
				}
			}
			if opts.Limit > 0 && len(res.Data) >= opts.Limit {
				res.Data = res.Data[:opts.Limit]
				return res, nil
			}
		}
	}
}
