// Command lsb-hist prints how often each least-significant-set-bit index
// occurs in a capture, with entropy estimates, and can chart it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/lsbhist"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/samples"
	"github.com/mkj/caprand/internal/version"
)

const tool = "lsb-hist"

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
	hexInput := fs.Bool("hex", false, "input is hex text as streamed by the device")
	limit := fs.Int("n", 0, "use at most this many bytes of the capture (0 = all)")
	pngPath := fs.String("png", "", "also write a PNG bar chart to this path")
	htmlPath := fs.String("html", "", "also write an HTML bar chart to this path")
	title := fs.String("title", "", "chart title (default: input file name)")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <capture>\n", tool)
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

	fsys := fsutil.OSFileSystem{}
	in := fs.Arg(0)
	data, err := samples.Load(fsys, in, samples.Options{Hex: *hexInput, Limit: *limit})
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s: capture is empty", in)
	}

	h := lsbhist.FromSamples(data)
	if err := h.WriteTable(stdout); err != nil {
		return err
	}

	chartTitle := *title
	if chartTitle == "" {
		chartTitle = filepath.Base(in)
	}
	if *pngPath != "" {
		if err := h.WritePNG(fsys, *pngPath, chartTitle); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		if err := writeHTML(fsys, *htmlPath, h, chartTitle); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", *htmlPath)
	}
	return nil
}

func writeHTML(fsys fsutil.FileSystem, path string, h *lsbhist.Histogram, title string) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := h.WriteHTML(f, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
