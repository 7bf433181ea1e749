// Command sample-to-img renders the least-significant-set-bit index of every
// byte of a square capture as a grayscale PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkj/caprand/internal/bitplane"
	"github.com/mkj/caprand/internal/config"
	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/samples"
	"github.com/mkj/caprand/internal/version"
)

const tool = "sample-to-img"

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
	output := fs.String("o", "", "output PNG path (default from config, else "+bitplane.DefaultOutputPath+")")
	hexInput := fs.Bool("hex", false, "input is hex text as streamed by the device")
	limit := fs.Int("n", 0, "use at most this many bytes of the capture (0 = all)")
	zero := fs.String("zero", "", "zero-byte policy: alias or distinct (default from config, else alias)")
	configPath := fs.String("config", "", "tool config file (.json, .yaml or .yml)")
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

	outPath := cfg.GetOutputPath()
	if *output != "" {
		outPath = *output
	}
	policyName := cfg.GetZeroPolicy()
	if *zero != "" {
		policyName = *zero
	}
	policy, err := bitplane.ParseZeroPolicy(policyName)
	if err != nil {
		return err
	}
	opts := bitplane.Options{LumaMin: cfg.GetLumaMin(), LumaMax: cfg.GetLumaMax(), Zero: policy}

	fsys := fsutil.OSFileSystem{}
	data, err := samples.Load(fsys, fs.Arg(0), samples.Options{Hex: *hexInput, Limit: *limit})
	if err != nil {
		return err
	}

	sum, err := bitplane.WriteFile(fsys, outPath, data, opts)
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %s (%dx%d)", outPath, sum.Edge, sum.Edge)
	return nil
}
