package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/olivier-w/callbar/internal/audio"
	"github.com/olivier-w/callbar/internal/config"
	"github.com/olivier-w/callbar/internal/observe"
	"github.com/olivier-w/callbar/internal/session"
	"github.com/olivier-w/callbar/internal/transport/demo"
	"github.com/olivier-w/callbar/internal/transport/livekit"
	"github.com/olivier-w/callbar/internal/ui"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

var logLevelMap = map[config.LogLevel]slog.Level{
	config.LogDebug: slog.LevelDebug,
	config.LogInfo:  slog.LevelInfo,
	config.LogWarn:  slog.LevelWarn,
	config.LogError: slog.LevelError,
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Resolve(os.Args[1:], os.LookupEnv)
	if err != nil {
		return err
	}

	logger, logFile, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	logger.Info("starting", "version", version, "assistant", cfg.AssistantID, "demo", cfg.Demo.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "callbar",
			ServiceVersion: version,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("metrics shutdown", "err", err)
			}
		}()
	}
	metrics := observe.DefaultMetrics()
	shutdownTracing := observe.InitTracing()
	defer shutdownTracing(context.Background())

	var sink audio.Sink
	var volume ui.VolumeControl
	playback, err := audio.NewPlayback()
	if err != nil {
		logger.Warn("audio output unavailable, agent will be silent", "err", err)
	} else {
		defer playback.Close()
		sink = playback
		volume = playback
	}

	var (
		sessions  session.Creator
		transport session.Transport
		agentName string
	)
	if cfg.Demo.Enabled {
		opts := []demo.Option{demo.WithLogger(logger), demo.WithFailAfter(cfg.Demo.FailAfter)}
		if sink != nil {
			opts = append(opts, demo.WithSink(sink))
		}
		if cfg.Demo.File != "" {
			clip, err := demo.LoadClip(cfg.Demo.File)
			if err != nil {
				return err
			}
			opts = append(opts, demo.WithClip(clip))
		}
		t := demo.New(opts...)
		transport = t
		sessions = demo.NewSessions()
		agentName = t.Title()
		if cfg.AssistantID == "" {
			cfg.AssistantID = "demo"
		}
	} else {
		opts := []livekit.Option{livekit.WithLogger(logger)}
		if sink != nil {
			opts = append(opts, livekit.WithSink(sink))
		}
		transport = livekit.New(opts...)
		sessions = session.NewClient(session.WithBaseURL(cfg.BaseURL))
	}

	orch := session.NewOrchestrator(sessions, transport,
		session.WithAssistant(cfg.AssistantID),
		session.WithParticipantName(cfg.ParticipantName),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
	)

	uiOpts := []ui.Option{ui.WithMetrics(metrics), ui.WithAgentName(agentName)}
	if volume != nil {
		uiOpts = append(uiOpts, ui.WithVolume(volume))
	}
	model := ui.New(cfg, orch, uiOpts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return orch.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			return observe.Serve(gctx, cfg.MetricsAddr)
		})
	}
	g.Go(func() error {
		defer cancel()
		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	logger.Info("stopped", "err", err)
	return err
}

func openLogger(cfg *config.WidgetConfig) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	level, ok := logLevelMap[cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(f, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    true,
	})), f, nil
}
