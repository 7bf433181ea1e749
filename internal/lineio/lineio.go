// Package lineio reads text one line at a time without a line length limit.
// Captures written by `xxd -p -c0` and firmware logs with runaway lines both
// exceed bufio.Scanner's 64 KiB token cap.
package lineio

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Stop ends Each early without an error.
var Stop = errors.New("stop reading lines")

// Each calls fn for every line of r, numbered from 1, with the trailing "\n"
// or "\r\n" removed. A final line without a newline is still passed on. If fn
// returns Stop, Each returns nil; any other error is returned as is.
func Each(r io.Reader, fn func(lineNo int, line string) error) error {
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line == "" && err == io.EOF {
			return nil
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if ferr := fn(lineNo, line); ferr != nil {
			if errors.Is(ferr, Stop) {
				return nil
			}
			return ferr
		}
		if err == io.EOF {
			return nil
		}
	}
}
