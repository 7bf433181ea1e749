// Command log-to-csv turns the device's "up"/"down" counter log lines, read
// from stdin, into a CSV of per-byte counter pairs on stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkj/caprand/internal/counterlog"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/version"
)

const tool = "log-to-csv"

func main() {
	monitoring.SetOutput(os.Stderr, tool)
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", tool, err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s < log > out.csv\n", tool)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String(tool))
		return nil
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("unexpected arguments %q", fs.Args())
	}

	rows, err := counterlog.Extract(stdin, stdout)
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %d rows", rows)
	return nil
}
