package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/abelbrown/popweight/internal/config"
	"github.com/abelbrown/popweight/internal/logging"
	"github.com/abelbrown/popweight/internal/model"
	"github.com/abelbrown/popweight/internal/otel"
)

// exitHooks release resources that deferred calls would miss on os.Exit.
var (
	exitMu    sync.Mutex
	exitHooks []func()
)

// onExit registers f to run once, from runExitHooks, newest first.
func onExit(f func()) {
	exitMu.Lock()
	defer exitMu.Unlock()
	exitHooks = append(exitHooks, f)
}

// runExitHooks runs and clears the registered hooks.
func runExitHooks() {
	exitMu.Lock()
	hooks := exitHooks
	exitHooks = nil
	exitMu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// fatalf prints to stderr, runs the exit hooks and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	runExitHooks()
	os.Exit(1)
}

// loadConfig loads path or exits.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatalf("%v", err)
	}
	return cfg
}

// setupLogging points the global logger at cfg.LogDir, or stderr, and
// registers logging.Close as an exit hook.
func setupLogging(cfg *config.Config) {
	level, _ := logging.ParseLevel(cfg.LogLevel) // validated by config.Load
	if cfg.LogDir == "" {
		logging.Init(os.Stderr, level)
	} else if err := logging.InitFile(cfg.LogDir, level); err != nil {
		fatalf("%v", err)
	}
	onExit(logging.Close)
}

// openEventLog appends to cfg.EventLog. An unset path yields a null logger.
// The returned close func flushes the logger and then the file; it is safe to
// call more than once and is also registered as an exit hook.
func openEventLog(cfg *config.Config) (*otel.Logger, func()) {
	if cfg.EventLog == "" {
		l := otel.NewNullLogger()
		onExit(l.Close)
		return l, l.Close
	}
	f, err := os.OpenFile(cfg.EventLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fatalf("open event log: %v", err)
	}
	l := otel.NewLogger(f)
	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			l.Close()
			f.Close()
		})
	}
	onExit(closeFn)
	return l, closeFn
}

// readDocuments decodes path, or stdin for "-".
func readDocuments(path string) ([]model.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return model.DecodeDocuments(r)
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
