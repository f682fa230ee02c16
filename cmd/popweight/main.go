// Command popweight scores scraped posts and comments into candidate
// popularity.
//
// Usage:
//
//	popweight                      Show help
//	popweight analyze <file|->     Score a batch of classified documents
//	popweight events               JSONL data-quality event viewer
//	popweight config               Print the effective configuration
package main

import (
	"fmt"
	"os"
)

const usage = `popweight - engagement-weighted candidate attribution

Usage:
  popweight <command> [flags]

Commands:
  analyze     Score a JSON array or JSON Lines file of documents ('-' reads stdin)
  events      JSONL event log viewer
  config      Print the effective configuration as YAML

Environment:
  POPWEIGHT_CONFIG          Config file (default: ./popweight.yaml)
  POPWEIGHT_HALF_LIFE_DAYS  Decay half-life in days (default: 7)
  POPWEIGHT_WORKERS         Scoring workers (default: one per CPU)
  POPWEIGHT_LOG_LEVEL       debug, info, warn, error (default: info)
  POPWEIGHT_EVENT_LOG       JSONL event log path (default: disabled)
  POPWEIGHT_TRACE           Also log one event per scored document

Run 'popweight <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "analyze":
		runAnalyze()
	case "events":
		runEvents()
	case "config":
		runConfig()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "popweight: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
