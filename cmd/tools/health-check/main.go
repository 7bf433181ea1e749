// Command health-check runs the SP 800-90B continuous health tests
// (repetition count and adaptive proportion) over a capture. It exits non-zero
// if any sample fails.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkj/caprand/internal/config"
	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/health"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/samples"
	"github.com/mkj/caprand/internal/version"
)

const tool = "health-check"

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
	limit := fs.Int("n", 0, "test at most this many bytes of the capture (0 = all)")
	configPath := fs.String("config", "", "tool config file with apt_window, apt_cutoff, rct_cutoff")
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

	cfg, err := config.LoadOrEmpty(*configPath)
	if err != nil {
		return err
	}
	data, err := samples.Load(fsutil.OSFileSystem{}, fs.Arg(0), samples.Options{Hex: *hexInput, Limit: *limit})
	if err != nil {
		return err
	}

	rep := health.Check(data, healthConfig(cfg))
	fmt.Fprintf(stdout, "samples %d\nfailures %d (repetition %d, adaptive proportion %d)\n",
		rep.Samples, rep.Failures, rep.Repetition, rep.Adaptive)
	if !rep.OK() {
		return fmt.Errorf("health test failed at offset %d: %w", rep.FirstOffset, rep.FirstFailure)
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func healthConfig(cfg *config.ToolsConfig) health.Config {
	return health.Config{
		APTWindow: cfg.GetAPTWindow(),
		APTCutoff: cfg.GetAPTCutoff(),
		RCTCutoff: cfg.GetRCTCutoff(),
	}
}
