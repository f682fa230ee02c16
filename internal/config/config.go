// Package config loads the deployment constants of the attribution engine.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/popweight/internal/attribution"
	"github.com/abelbrown/popweight/internal/decay"
	"github.com/abelbrown/popweight/internal/engagement"
	"github.com/abelbrown/popweight/internal/logging"
	"github.com/abelbrown/popweight/internal/model"
)

// Config is the on-disk configuration. Keys left out of the file keep their
// defaults.
type Config struct {
	HalfLifeDays      float64            `yaml:"half_life_days"`
	ReactionWeights   map[string]float64 `yaml:"reaction_weights"`
	EngagementWeights engagement.Weights `yaml:"engagement_weights"`
	Candidates        []string           `yaml:"candidates"`

	// Workers bounds the scoring pool; 0 means one per CPU.
	Workers int `yaml:"workers"`

	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir,omitempty"`   // empty logs to stderr
	EventLog string `yaml:"event_log,omitempty"` // JSONL data-quality events; empty disables
}

// DefaultConfig returns the production constants.
func DefaultConfig() *Config {
	table := engagement.DefaultTable()
	weights := make(map[string]float64, len(table))
	for kind, w := range table {
		weights[string(kind)] = w
	}

	var candidates []string
	for _, c := range model.Candidates() {
		candidates = append(candidates, string(c))
	}

	return &Config{
		HalfLifeDays:      decay.DefaultHalfLifeDays,
		ReactionWeights:   weights,
		EngagementWeights: engagement.DefaultWeights(),
		Candidates:        candidates,
		LogLevel:          "info",
	}
}

// ConfigPath returns $POPWEIGHT_CONFIG or ./popweight.yaml.
func ConfigPath() string {
	if p := os.Getenv("POPWEIGHT_CONFIG"); p != "" {
		return p
	}
	return "popweight.yaml"
}

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from POPWEIGHT_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("POPWEIGHT_HALF_LIFE_DAYS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("POPWEIGHT_HALF_LIFE_DAYS: %w", err)
		}
		c.HalfLifeDays = f
	}
	if v := os.Getenv("POPWEIGHT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POPWEIGHT_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("POPWEIGHT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POPWEIGHT_EVENT_LOG"); v != "" {
		c.EventLog = v
	}
	return nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if !(c.HalfLifeDays > 0) || math.IsInf(c.HalfLifeDays, 0) {
		return fmt.Errorf("half_life_days must be positive, got %v", c.HalfLifeDays)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	for label, w := range c.ReactionWeights {
		if _, ok := model.ParseReactionKind(label); !ok {
			return fmt.Errorf("unknown reaction kind %q", label)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("reaction weight %q must be finite", label)
		}
	}
	ew := c.EngagementWeights
	for name, w := range map[string]float64{
		"shares":            ew.Shares,
		"comments":          ew.Comments,
		"comment_reactions": ew.CommentReactions,
		"comment_replies":   ew.CommentReplies,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("engagement weight %q must be finite", name)
		}
	}
	if len(c.Candidates) == 0 {
		return errors.New("candidates must not be empty")
	}
	seen := make(map[model.Candidate]bool, len(c.Candidates))
	for _, label := range c.Candidates {
		cand, ok := model.ParseCandidate(label)
		if !ok {
			return fmt.Errorf("unknown candidate %q", label)
		}
		if seen[cand] {
			return fmt.Errorf("duplicate candidate %q", label)
		}
		seen[cand] = true
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Engine converts a validated Config into engine constants.
func (c *Config) Engine() attribution.Config {
	table := make(engagement.Table, len(c.ReactionWeights))
	for label, w := range c.ReactionWeights {
		kind, _ := model.ParseReactionKind(label)
		table[kind] = w
	}

	var candidates []model.Candidate
	for _, label := range c.Candidates {
		if cand, ok := model.ParseCandidate(label); ok {
			candidates = append(candidates, cand)
		}
	}

	return attribution.Config{
		Reactions:    table,
		Engagement:   c.EngagementWeights,
		HalfLifeDays: c.HalfLifeDays,
		Candidates:   candidates,
		Workers:      c.Workers,
	}
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
