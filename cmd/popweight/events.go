package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/popweight/internal/config"
)

// eventRecord mirrors otel.Event for JSON decoding, so old logs stay
// readable when the event schema grows.
type eventRecord struct {
	Time  time.Time      `json:"t"`
	Level string         `json:"level"`
	Kind  string         `json:"kind"`
	RunID string         `json:"run_id"`
	DocID string         `json:"doc"`
	Field string         `json:"field"`
	Raw   string         `json:"raw"`
	DurMs float64        `json:"dur_ms"`
	Count int            `json:"count"`
	Err   string         `json:"err"`
	Msg   string         `json:"msg"`
	Extra map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

// eventFilter selects events by kind prefix, minimum level, run and document.
type eventFilter struct {
	kind  string
	level string
	run   string
	doc   string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.run != "" && ev.RunID != f.run {
		return false
	}
	if f.doc != "" && ev.DocID != f.doc {
		return false
	}
	return true
}

func runEvents() {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "YAML config file")
	file := fs.String("file", "", "Event log (default: event_log from config)")
	tail := fs.Int("tail", 50, "Number of recent lines to show")
	follow := fs.Bool("f", false, "Follow mode (like tail -f)")
	kind := fs.String("kind", "", "Filter by event kind prefix (e.g. 'timestamp')")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	run := fs.String("run", "", "Filter by run ID")
	doc := fs.String("doc", "", "Filter by document ID")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	fs.Parse(os.Args[1:])

	logPath := *file
	if logPath == "" {
		logPath = loadConfig(*configPath).EventLog
	}
	if logPath == "" {
		fatalf("no event log configured\n  Set event_log in the config file or POPWEIGHT_EVENT_LOG, or pass -file.")
	}

	f, err := os.Open(logPath)
	if err != nil {
		fatalf("%v\n  Event log not found at %s\n  Run 'popweight analyze' first to generate events.", err, logPath)
	}
	defer f.Close()

	filter := eventFilter{kind: *kind, level: *level, run: *run, doc: *doc}
	format := func(ev eventRecord, raw []byte) string {
		if *rawJSON {
			return string(raw)
		}
		return formatEvent(ev)
	}

	for _, l := range readTailLines(f, *tail, filter.match) {
		fmt.Println(format(l.ev, l.raw))
	}
	if !*follow {
		return
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			fmt.Println(format(ev, line))
		}
	}
}

func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s %-20s", ts, lvl, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DocID != "" {
		parts = append(parts, "doc="+ev.DocID)
	}
	if ev.Field != "" {
		parts = append(parts, "field="+ev.Field)
	}
	if ev.Raw != "" {
		parts = append(parts, fmt.Sprintf("raw=%q", ev.Raw))
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	if n <= 0 {
		return nil
	}
	ring := make([]parsedLine, 0, n)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses its buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
