// Command mku16 packs a file of decimal integers, one per line, into
// big-endian int16 values written to <input>.bin.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/intpack"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/version"
)

const tool = "mku16"

func main() {
	monitoring.SetOutput(os.Stderr, tool)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", tool, err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s <input>\n", tool)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String(tool))
		return nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one input path, got %d", fs.NArg())
	}

	outPath, n, err := intpack.PackFile(fsutil.OSFileSystem{}, fs.Arg(0), intpack.Width16)
	if err != nil {
		return err
	}
	monitoring.Logf("packed %d values into %s", n, outPath)
	return nil
}
