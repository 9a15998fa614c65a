package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/rewind/internal/backtest"
	"github.com/newthinker/rewind/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  initial_equity: 50000
  position_size_policy: full
  stop_loss_pct: 0.02
  take_profit_pct: 0.05
  entry_latency_bars: 1
  entry_slippage_bps: 10
sweep:
  strategy: sma_cross
  objective: score_balanced
  mode: grid
  params:
    - fast=5:20:5
    - slow=30,60
  max_grid_size: 500
walkforward:
  train_span: 2160h
  test_span: 720h
  step: 720h
archive:
  type: localfs
  path: /tmp/artifacts
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.InitialEquity != 50000 || cfg.Engine.SizePolicy != backtest.SizeFull {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.EntryLatencyBars != 1 || cfg.Engine.EntrySlippageBps != 10 {
		t.Errorf("engine latency/slippage = %+v", cfg.Engine)
	}
	if cfg.Sweep.Strategy != "sma_cross" || len(cfg.Sweep.Params) != 2 {
		t.Errorf("sweep = %+v", cfg.Sweep)
	}
	if cfg.Sweep.MaxGridSize != 500 {
		t.Errorf("max_grid_size = %d", cfg.Sweep.MaxGridSize)
	}
	if cfg.WalkForward.TrainSpan != 2160*time.Hour {
		t.Errorf("train_span = %v", cfg.WalkForward.TrainSpan)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, `
sweep:
  strategy: sma_cross
  objective: net_pct
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.InitialEquity != 100_000 {
		t.Errorf("default equity = %v", cfg.Engine.InitialEquity)
	}
	if cfg.Sweep.Mode != "grid" || cfg.Archive.Type != "localfs" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("REWIND_TEST_BUCKET", "my-bucket")
	path := writeConfig(t, `
archive:
  type: s3
  s3:
    bucket: ${REWIND_TEST_BUCKET}
    region: us-east-1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.S3.Bucket != "my-bucket" {
		t.Errorf("bucket = %q, want expansion from env", cfg.Archive.S3.Bucket)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad sweep mode", func(c *Config) { c.Sweep.Mode = "annealing" }, core.ErrConfigInvalid},
		{"random without samples", func(c *Config) { c.Sweep.Mode = "random"; c.Sweep.Samples = 0 }, core.ErrConfigInvalid},
		{"bad archive type", func(c *Config) { c.Archive.Type = "ftp" }, core.ErrConfigInvalid},
		{"localfs without path", func(c *Config) { c.Archive.Path = "" }, core.ErrConfigMissing},
		{"s3 without bucket", func(c *Config) { c.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"bad engine equity", func(c *Config) { c.Engine.InitialEquity = 0 }, core.ErrConfigInvalid},
		{"bad walkforward step", func(c *Config) { c.WalkForward.Step = 0 }, core.ErrConfigInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}
