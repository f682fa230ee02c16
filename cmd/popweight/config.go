package main

import (
	"flag"
	"os"

	"github.com/abelbrown/popweight/internal/config"
)

func runConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	path := fs.String("config", config.ConfigPath(), "YAML config file")
	fs.Parse(os.Args[1:])

	cfg := loadConfig(*path)
	out, err := cfg.YAML()
	if err != nil {
		fatalf("render config: %v", err)
	}
	os.Stdout.Write(out)
}
