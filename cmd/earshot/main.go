//go:build cgo

// Command earshot runs the streaming sound-classification daemon: it opens
// a capture source, drives the scheduler against the configured classifier
// backend, and logs every classification until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonaptic/earshot/internal/config"
	"github.com/sonaptic/earshot/internal/observe"
	"github.com/sonaptic/earshot/pkg/audio"
	paopener "github.com/sonaptic/earshot/pkg/audio/portaudio"
	"github.com/sonaptic/earshot/pkg/audio/replay"
	"github.com/sonaptic/earshot/pkg/classify"
	"github.com/sonaptic/earshot/pkg/classify/onnx"
	"github.com/sonaptic/earshot/pkg/stream"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "earshot: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "earshot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	streamCfg := cfg.Capture.StreamConfig()
	slog.Info("earshot starting",
		"config", *configPath,
		"source", cfg.Capture.Source,
		"backend", cfg.Classifier.Backend,
		"window", streamCfg.WindowDuration(),
		"interval", streamCfg.Interval(),
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg.Server.MetricsAddr)
	}

	// ── Capture source ────────────────────────────────────────────────────────
	opener, err := buildOpener(cfg.Capture)
	if err != nil {
		slog.Error("failed to build capture source", "err", err)
		return 1
	}

	// ── Classifier backend factory ────────────────────────────────────────────
	factory, err := buildFactory(cfg.Classifier)
	if err != nil {
		slog.Error("failed to build classifier factory", "err", err)
		return 1
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	metrics := observe.DefaultMetrics()
	sched, err := stream.New(streamCfg, cfg.Classifier.ClassifyConfig(),
		stream.WithSkipHook(func() { metrics.RecordSkippedCycle(context.Background()) }),
	)
	if err != nil {
		slog.Error("invalid scheduler configuration", "err", err)
		return 1
	}

	listener := classify.Listeners{
		observe.NewMetricsListener(nil),
		&logListener{},
	}
	if err := sched.Initialize(factory, opener, listener); err != nil {
		slog.Error("scheduler initialization failed", "err", err)
		return 1
	}

	if cfg.Classifier.ClassifyConfig().Mode == classify.ModeOneShot {
		return runOneShot(cfg, sched)
	}

	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "err", err)
		return 1
	}
	metrics.ActiveStreams.Add(ctx, 1)

	<-ctx.Done()
	slog.Info("shutting down")

	metrics.ActiveStreams.Add(context.Background(), -1)
	if err := sched.Stop(); err != nil {
		slog.Warn("scheduler stop", "err", err)
	}
	stats := sched.SnapshotStats()
	slog.Info("final cycle counters",
		"cycles", stats.Cycles,
		"skipped", stats.Skipped,
		"submitted", stats.Submitted,
	)
	return 0
}

// runOneShot classifies the configured replay file once through the
// synchronous path and prints the result.
func runOneShot(cfg *config.Config, sched *stream.Scheduler) int {
	defer sched.Stop()

	if cfg.Capture.ReplayPath == "" {
		slog.Error("one-shot mode requires capture.replay_path")
		return 1
	}
	raw, err := os.ReadFile(cfg.Capture.ReplayPath)
	if err != nil {
		slog.Error("failed to read audio file", "path", cfg.Capture.ReplayPath, "err", err)
		return 1
	}
	pcm, format, err := audio.DecodeWAV(raw)
	if err != nil {
		slog.Error("failed to decode audio file", "path", cfg.Capture.ReplayPath, "err", err)
		return 1
	}

	bundle := sched.ClassifySync(audio.Frame{
		Data:       pcm,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	})
	if bundle == nil {
		// The listener already reported the failure.
		return 1
	}
	for _, cat := range bundle.Categories {
		fmt.Printf("%-32s %.3f\n", cat.Label, cat.Score)
	}
	return 0
}

// buildOpener selects the capture backend named in the config.
func buildOpener(cfg config.CaptureConfig) (audio.Opener, error) {
	switch cfg.Source {
	case "", "portaudio":
		return paopener.Opener{}, nil
	case "replay":
		return replay.Opener{Path: cfg.ReplayPath}, nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.Source)
	}
}

// buildFactory selects the classifier backend named in the config.
func buildFactory(cfg config.ClassifierConfig) (classify.Factory, error) {
	switch cfg.Backend {
	case "", "onnx":
		return onnx.NewFactory(
			onnx.WithLibraryPath(cfg.RuntimeLibrary),
			onnx.WithLabelsPath(cfg.Labels),
		), nil
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
	}
}

// serveMetrics exposes the Prometheus bridge on addr.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics endpoint stopped", "err", err)
	}
}

// logListener logs every classification outcome.
type logListener struct{}

func (logListener) OnResult(bundle classify.ResultBundle) {
	attrs := []any{
		"inference", bundle.InferenceTime,
		"token", bundle.Token,
	}
	for _, cat := range bundle.Categories {
		attrs = append(attrs, cat.Label, fmt.Sprintf("%.3f", cat.Score))
	}
	slog.Info("classification", attrs...)
}

func (logListener) OnError(err error) {
	slog.Warn("classification failed", "err", err)
}

// newLogger creates a text slog.Logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
