// Command captures lists the capture sessions recorded by the capture tool,
// or shows one session's histogram.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mkj/caprand/internal/capdb"
	"github.com/mkj/caprand/internal/config"
	"github.com/mkj/caprand/internal/lsbhist"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/version"
)

const tool = "captures"

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
	dbPath := fs.String("db", "", "sqlite database (default from config)")
	limit := fs.Int("limit", 20, "number of sessions to list, newest first (0 = all)")
	id := fs.String("id", "", "show a single session")
	configPath := fs.String("config", "", "tool config file (.json, .yaml or .yml)")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String(tool))
		return nil
	}

	cfg, err := config.LoadOrEmpty(*configPath)
	if err != nil {
		return err
	}
	path := cfg.GetDBPath()
	if *dbPath != "" {
		path = *dbPath
	}
	if path == "" {
		return errors.New("no database: pass -db or set db_path in the config")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database %s: %w", path, err)
	}

	db, err := capdb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		return err
	}

	if *id != "" {
		s, err := db.GetSession(*id)
		if err != nil {
			return err
		}
		return showSession(stdout, s)
	}

	sessions, err := db.ListSessions(*limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tSOURCE\tBYTES\tHEALTH\tSHANNON\tMIN-ENTROPY\tOUTPUT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.3f\t%.3f\t%s\n",
			s.ID, s.StartedAt.UTC().Format(time.RFC3339), s.Source, s.ByteCount,
			healthLabel(s.HealthOK), s.ShannonBits, s.MinEntropyBits, s.OutputPath)
	}
	return tw.Flush()
}

func healthLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

func showSession(w io.Writer, s *capdb.Session) error {
	fmt.Fprintf(w, "session %s\nstarted %s\nsource  %s\noutput  %s\nhealth  %s\n",
		s.ID, s.StartedAt.UTC().Format(time.RFC3339), s.Source, s.OutputPath, healthLabel(s.HealthOK))
	if len(s.Histogram) != lsbhist.Buckets+1 {
		return fmt.Errorf("session %s: histogram has %d buckets, want %d", s.ID, len(s.Histogram), lsbhist.Buckets+1)
	}

	h := &lsbhist.Histogram{Zeros: s.Histogram[lsbhist.Buckets]}
	copy(h.Counts[:], s.Histogram)
	for _, c := range s.Histogram {
		h.Total += c
	}
	return h.WriteTable(w)
}
