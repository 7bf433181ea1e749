// Command capture reads the hex noise samples the device streams over its
// USB serial port and writes them as a raw binary capture. With a database
// configured it also records the session with its LSB histogram and health
// test result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkj/caprand/internal/capdb"
	"github.com/mkj/caprand/internal/config"
	"github.com/mkj/caprand/internal/fsutil"
	"github.com/mkj/caprand/internal/health"
	"github.com/mkj/caprand/internal/lsbhist"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/serialcap"
	"github.com/mkj/caprand/internal/version"
)

const (
	tool          = "capture"
	progressEvery = 4096
)

var (
	openPort  serialcap.SerialPortOpener = serialcap.Open
	listPorts                            = serialcap.ListPorts
)

func main() {
	monitoring.SetOutput(os.Stderr, tool)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", tool, err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	port := fs.String("port", "", "serial port (default from config, else /dev/ttyACM0)")
	baud := fs.Int("baud", 0, "baud rate (default from config, else 115200)")
	count := fs.Int("n", -1, "bytes to capture, 0 = until interrupted (default from config, else 25600)")
	output := fs.String("o", "capture.bin", "output path for the raw capture")
	dbPath := fs.String("db", "", "sqlite database to record the session in (default from config, else none)")
	duration := fs.Duration("duration", 0, "stop after this long (0 = no limit)")
	list := fs.Bool("list-ports", false, "list serial ports and exit")
	configPath := fs.String("config", "", "tool config file (.json, .yaml or .yml)")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String(tool))
		return nil
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	if *list {
		ports, err := listPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Fprintln(stdout, p)
		}
		return nil
	}

	cfg, err := config.LoadOrEmpty(*configPath)
	if err != nil {
		return err
	}
	portPath := cfg.GetSerialPort()
	if *port != "" {
		portPath = *port
	}
	baudRate := cfg.GetBaudRate()
	if *baud != 0 {
		baudRate = *baud
	}
	limit := cfg.GetCaptureBytes()
	if *count >= 0 {
		limit = *count
	}
	db := cfg.GetDBPath()
	if *dbPath != "" {
		db = *dbPath
	}

	p, err := openPort(portPath, serialcap.PortOptions{BaudRate: baudRate})
	if err != nil {
		return err
	}
	defer p.Close()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	started := time.Now()
	monitoring.Logf("capturing from %s at %d baud", portPath, baudRate)
	res, err := serialcap.Capture(ctx, p, serialcap.Options{
		Limit:         limit,
		SkipFirst:     true,
		ProgressEvery: progressEvery,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("capture failed after %d bytes: %w", len(res.Data), err)
		}
		monitoring.Logf("capture stopped: %v", err)
	}
	if res.Skipped > 0 {
		monitoring.Logf("skipped %d malformed lines", res.Skipped)
	}
	if len(res.Data) == 0 {
		return errors.New("no samples captured")
	}

	if err := (fsutil.OSFileSystem{}).WriteFile(*output, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	fmt.Fprintf(stdout, "captured %d bytes to %s\n", len(res.Data), *output)

	hist := lsbhist.FromSamples(res.Data)
	if err := hist.WriteTable(stdout); err != nil {
		return err
	}
	rep := health.Check(res.Data, health.Config{
		APTWindow: cfg.GetAPTWindow(),
		APTCutoff: cfg.GetAPTCutoff(),
		RCTCutoff: cfg.GetRCTCutoff(),
	})
	if rep.OK() {
		fmt.Fprintln(stdout, "health ok")
	} else {
		fmt.Fprintf(stdout, "health FAILED: %d failures, first at offset %d: %v\n",
			rep.Failures, rep.FirstOffset, rep.FirstFailure)
	}

	if db == "" {
		return nil
	}
	return record(db, &capdb.Session{
		Source:         portPath,
		OutputPath:     *output,
		StartedAt:      started,
		ByteCount:      len(res.Data),
		HealthOK:       rep.OK(),
		ShannonBits:    hist.ShannonBits(),
		MinEntropyBits: hist.MinEntropyBits(),
		Histogram:      append(hist.Counts[:], hist.Zeros),
	}, stdout)
}

func record(path string, s *capdb.Session, stdout io.Writer) error {
	db, err := capdb.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		return err
	}
	if err := db.RecordSession(s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "session %s\n", s.ID)
	return nil
}
