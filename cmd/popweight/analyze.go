package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abelbrown/popweight/internal/attribution"
	"github.com/abelbrown/popweight/internal/config"
	"github.com/abelbrown/popweight/internal/logging"
	"github.com/abelbrown/popweight/internal/metrics"
	"github.com/abelbrown/popweight/internal/otel"
)

// recentEvents is how many warnings the text report echoes.
const recentEvents = 5

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "YAML config file")
	asJSON := fs.Bool("json", false, "Print the full report as JSON")
	nowFlag := fs.String("now", "", "Reference instant, RFC3339 (default: current time)")
	showLedger := fs.Bool("ledger", false, "Show the per-candidate contribution ledger")
	showDocs := fs.Bool("docs", false, "List per-document weights")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: popweight analyze [flags] <file|->")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	setupLogging(cfg)
	defer runExitHooks()

	now := time.Now().UTC()
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fatalf("-now: %v", err)
		}
		now = t
	}

	docs, err := readDocuments(fs.Arg(0))
	if err != nil {
		fatalf("read documents: %v", err)
	}

	events, closeEvents := openEventLog(cfg)
	ring := otel.NewRingBuffer(256)
	events.SetRingBuffer(ring)

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		fatalf("register metrics: %v", err)
	}

	rec := attribution.Recorders(attribution.LogRecorder{}, otel.Recorder{L: events}, collector)
	engine := attribution.New(cfg.Engine(), now, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Count: len(docs),
		Msg:   "analyze " + fs.Arg(0),
	})
	logging.Info("Scoring documents", "count", len(docs), "now", now.Format(time.RFC3339), "run", events.RunID())

	report, err := engine.Analyze(ctx, docs)
	if err != nil {
		events.Error(otel.KindShutdown, err)
		fatalf("analyze: %v", err)
	}
	if q := report.Quality; q.FailedDocuments > 0 {
		events.Warn(otel.KindBatchComplete, fmt.Sprintf("%d of %d documents failed", q.FailedDocuments, q.Documents))
	}
	events.Info(otel.KindShutdown, "analyze complete")
	closeEvents()

	if dropped := events.Dropped(); dropped > 0 {
		logging.Warn("Event log dropped events", "count", dropped)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatalf("encode report: %v", err)
		}
		return
	}

	snap, err := metrics.Snapshot(reg)
	if err != nil {
		logging.Warn("Metric snapshot failed", "err", err)
	}
	fmt.Print(renderReport(report, engine.Candidates(), reportOptions{
		ledger:  *showLedger,
		docs:    *showDocs,
		metrics: snap,
		recent:  warnings(ring, recentEvents),
		events:  summarizeEvents(ring),
	}))
}

// eventSummary is the per-kind view of the ring after a run.
type eventSummary struct {
	counts    map[otel.EventKind]int
	truncated bool // the ring wrapped, so older events are not counted
}

func summarizeEvents(ring *otel.RingBuffer) eventSummary {
	return eventSummary{counts: ring.Stats(), truncated: ring.Len() == ring.Cap()}
}

// warnings returns the last n warn-or-worse events in the ring.
func warnings(ring *otel.RingBuffer, n int) []otel.Event {
	var out []otel.Event
	for _, ev := range ring.Snapshot() {
		if ev.Level == otel.LevelWarn || ev.Level == otel.LevelError {
			out = append(out, ev)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
