package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sonaptic/earshot/internal/config"
	"github.com/sonaptic/earshot/pkg/classify"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  metrics_addr: ":9105"
  log_level: debug

capture:
  source: replay
  replay_path: /tmp/loop.wav
  sample_rate: 16000
  window_samples: 15600
  overlap_step: 3

classifier:
  backend: onnx
  model: /opt/models/yamnet.onnx
  labels: /opt/models/yamnet_class_map.csv
  score_threshold: 0.25
  max_results: 5
  mode: streaming
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.MetricsAddr != ":9105" {
		t.Errorf("server.metrics_addr: got %q, want %q", cfg.Server.MetricsAddr, ":9105")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Capture.Source != "replay" {
		t.Errorf("capture.source: got %q", cfg.Capture.Source)
	}
	if cfg.Capture.OverlapStep == nil || *cfg.Capture.OverlapStep != 3 {
		t.Errorf("capture.overlap_step: got %v, want 3", cfg.Capture.OverlapStep)
	}
	if cfg.Classifier.Model != "/opt/models/yamnet.onnx" {
		t.Errorf("classifier.model: got %q", cfg.Classifier.Model)
	}
	if cfg.Classifier.ScoreThreshold == nil || *cfg.Classifier.ScoreThreshold != 0.25 {
		t.Errorf("classifier.score_threshold: got %v, want 0.25", cfg.Classifier.ScoreThreshold)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	t.Parallel()
	// An empty config should succeed: every section has defaults.
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
capture:
  sampel_rate: 16000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for misspelled field, got nil")
	}
}

// ── defaults ──────────────────────────────────────────────────────────────────

func TestStreamConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc := cfg.Capture.StreamConfig()
	if sc.SampleRateHz != 16000 || sc.WindowSamples != 15600 || sc.OverlapStep != 2 {
		t.Errorf("unexpected defaults: %+v", sc)
	}
	if got, want := sc.Interval(), 487*time.Millisecond; got != want {
		t.Errorf("default interval: got %v, want %v", got, want)
	}
}

func TestStreamConfig_ZeroOverlapStepIsRespected(t *testing.T) {
	t.Parallel()
	// overlap_step: 0 is a valid explicit setting and must not fall back to
	// the default of 2.
	yaml := `
capture:
  overlap_step: 0
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Capture.StreamConfig().OverlapStep; got != 0 {
		t.Errorf("overlap step: got %d, want 0", got)
	}
}

func TestClassifyConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cc := cfg.Classifier.ClassifyConfig()
	if cc.Model != classify.DefaultModel {
		t.Errorf("model: got %q, want %q", cc.Model, classify.DefaultModel)
	}
	if cc.ScoreThreshold != classify.DefaultScoreThreshold {
		t.Errorf("score threshold: got %v, want %v", cc.ScoreThreshold, classify.DefaultScoreThreshold)
	}
	if cc.MaxResults != classify.DefaultMaxResults {
		t.Errorf("max results: got %d, want %d", cc.MaxResults, classify.DefaultMaxResults)
	}
	if cc.Mode != classify.ModeStreaming {
		t.Errorf("mode: got %q, want streaming", cc.Mode)
	}
}
