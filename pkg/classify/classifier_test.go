package classify_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sonaptic/earshot/pkg/classify"
	"github.com/sonaptic/earshot/pkg/classify/mock"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()
	cfg := classify.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.Model != "yamnet.tflite" {
		t.Errorf("model: got %q, want yamnet.tflite", cfg.Model)
	}
	if cfg.ScoreThreshold != 0.1 {
		t.Errorf("score threshold: got %v, want 0.1", cfg.ScoreThreshold)
	}
	if cfg.MaxResults != 3 {
		t.Errorf("max results: got %d, want 3", cfg.MaxResults)
	}
	if cfg.Mode != classify.ModeStreaming {
		t.Errorf("mode: got %q, want streaming", cfg.Mode)
	}
}

func TestConfig_ValidateCollectsAllFailures(t *testing.T) {
	t.Parallel()
	cfg := classify.Config{
		Model:          "",
		ScoreThreshold: -0.5,
		MaxResults:     0,
		Mode:           "bulk",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"model", "score threshold", "max results", "mode"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestMode_IsValid(t *testing.T) {
	t.Parallel()
	if !classify.ModeOneShot.IsValid() || !classify.ModeStreaming.IsValid() {
		t.Error("built-in modes should be valid")
	}
	if classify.Mode("batch").IsValid() {
		t.Error("unknown mode should be invalid")
	}
}

func TestListeners_FanOutInOrder(t *testing.T) {
	t.Parallel()
	first := &mock.Recorder{}
	second := &mock.Recorder{}
	chain := classify.Listeners{first, second}

	chain.OnResult(classify.ResultBundle{
		Categories: []classify.Category{{Label: "Speech", Score: 0.9}},
	})
	chain.OnError(errors.New("boom"))

	for i, rec := range []*mock.Recorder{first, second} {
		if rec.ResultCount() != 1 {
			t.Errorf("listener %d: results got %d, want 1", i, rec.ResultCount())
		}
		if rec.ErrorCount() != 1 {
			t.Errorf("listener %d: errors got %d, want 1", i, rec.ErrorCount())
		}
	}
}
