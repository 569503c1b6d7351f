// Command taratil is the main entry point for the Taratil verse practice
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"

	"github.com/sherbini/taratil/internal/app"
	"github.com/sherbini/taratil/internal/config"
	"github.com/sherbini/taratil/internal/observe"
	"github.com/sherbini/taratil/internal/resilience"
	"github.com/sherbini/taratil/pkg/provider/tts/espeak"
	"github.com/sherbini/taratil/pkg/provider/tts/library"
	"github.com/sherbini/taratil/pkg/provider/tts/polly"
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
			fmt.Fprintf(os.Stderr, "taratil: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "taratil: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("taratil starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "taratil",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Reference audio chain ─────────────────────────────────────────────────
	audio, err := buildAudioChain(ctx, cfg.Audio)
	if err != nil {
		slog.Error("failed to build audio chain", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, audio)

	var opts []app.Option
	if audio != nil {
		opts = append(opts, app.WithAudio(audio))
	}
	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Audio wiring ──────────────────────────────────────────────────────────────

// buildAudioChain assembles the synthesis fallback chain from config, in
// preference order: pre-recorded library, Amazon Polly, local espeak-ng.
// Returns nil when no backend is configured; reference audio is optional.
func buildAudioChain(ctx context.Context, cfg config.AudioConfig) (*resilience.AudioChain, error) {
	chain := resilience.NewAudioChain(resilience.BreakerConfig{
		Trip:    cfg.BreakerTrip,
		CoolOff: cfg.BreakerCoolOff,
	})

	if cfg.LibraryDir != "" {
		p, err := library.New(cfg.LibraryDir)
		if err != nil {
			return nil, fmt.Errorf("library backend: %w", err)
		}
		chain.Add("library", p)
	}

	if cfg.Polly != nil {
		client, err := buildPollyClient(ctx, cfg.Polly)
		if err != nil {
			return nil, fmt.Errorf("polly backend: %w", err)
		}
		var opts []polly.Option
		if cfg.Polly.CacheDir != "" {
			opts = append(opts, polly.WithCacheDir(cfg.Polly.CacheDir))
		}
		if cfg.Polly.Voice != "" {
			opts = append(opts, polly.WithDefaultVoice(cfg.Polly.Voice, "standard"))
		}
		p, err := polly.New(client, opts...)
		if err != nil {
			return nil, fmt.Errorf("polly backend: %w", err)
		}
		chain.Add("polly", p)
	}

	if cfg.Espeak != nil {
		var opts []espeak.Option
		if cfg.Espeak.Binary != "" {
			opts = append(opts, espeak.WithBinary(cfg.Espeak.Binary))
		}
		if cfg.Espeak.Voice != "" {
			opts = append(opts, espeak.WithVoice(cfg.Espeak.Voice))
		}
		if cfg.Espeak.Speed > 0 {
			opts = append(opts, espeak.WithSpeed(cfg.Espeak.Speed))
		}
		p, err := espeak.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("espeak backend: %w", err)
		}
		chain.Add("espeak", p)
	}

	if len(chain.Names()) == 0 {
		return nil, nil
	}
	return chain, nil
}

// buildPollyClient constructs the AWS Polly client, using static credentials
// from config when present and the default AWS credential chain otherwise.
func buildPollyClient(ctx context.Context, cfg *config.PollyConfig) (*awspolly.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awspolly.NewFromConfig(awsCfg), nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, audio *resilience.AudioChain) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Taratil — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Verse source    : %-19s ║\n", cfg.Verses.Source)
	if audio != nil {
		for i, name := range audio.Names() {
			label := "Audio chain"
			if i > 0 {
				label = ""
			}
			fmt.Printf("║  %-15s : %-19s ║\n", label, name)
		}
	} else {
		fmt.Printf("║  Audio chain     : %-19s ║\n", "(disabled)")
	}
	fmt.Printf("║  Languages       : %-19d ║\n", len(cfg.Session.Languages))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
