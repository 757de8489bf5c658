package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
mode: DRY_RUN
watchlist: [RELIANCE, TCS]
portfolio:
  initial_capital: 100000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Signals.BuyThreshold != 65 || cfg.Signals.SellThreshold != 35 {
		t.Errorf("thresholds = %.1f/%.1f, want 65/35", cfg.Signals.BuyThreshold, cfg.Signals.SellThreshold)
	}
	if cfg.Signals.MinVotes != 2 {
		t.Errorf("min_votes = %d, want 2", cfg.Signals.MinVotes)
	}
	if cfg.Risk.MaxRiskPerTrade != 0.015 {
		t.Errorf("max_risk_per_trade = %v, want 0.015", cfg.Risk.MaxRiskPerTrade)
	}
	if cfg.Risk.KellyFraction != 0.35 {
		t.Errorf("kelly_fraction = %v, want 0.35", cfg.Risk.KellyFraction)
	}
	if cfg.Risk.MaxPositions != 20 {
		t.Errorf("max_positions = %d, want 20", cfg.Risk.MaxPositions)
	}
	w := cfg.Regime.Weights.HighVol
	if w.Daily != 0.20 || w.H60 != 0.35 || w.H15 != 0.45 {
		t.Errorf("high_vol weights = %+v", w)
	}
	if cfg.TrailingStop.Percent != 2.0 || cfg.TrailingStop.ActivationPercent != 1.5 {
		t.Errorf("trailing defaults = %v/%v", cfg.TrailingStop.Percent, cfg.TrailingStop.ActivationPercent)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	body := validYAML + `
regime:
  weights:
    default: {daily: 0.5, h60: 0.4, h15: 0.3}
`
	_, err := LoadConfig(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "sum to 1.0") {
		t.Errorf("expected weight-sum error, got %v", err)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	body := validYAML + `
signals:
  buy_threshold: 40
  sell_threshold: 60
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Error("expected error for sell_threshold >= buy_threshold")
	}
}

func TestValidateRejectsBadMinVotes(t *testing.T) {
	body := validYAML + `
signals:
  min_votes: 4
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Error("expected error for min_votes out of range")
	}
}

func TestValidateRejectsBadRegimeThresholds(t *testing.T) {
	body := validYAML + `
regime:
  low_vol_max_atr_pct: 3.0
  high_vol_min_atr_pct: 1.5
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Error("expected error for inverted regime thresholds")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	body := strings.Replace(validYAML, "DRY_RUN", "PAPER", 1)
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Error("expected error for unknown mode")
	}
}
