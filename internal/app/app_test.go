package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sherbini/taratil/internal/app"
	"github.com/sherbini/taratil/internal/config"
	"github.com/sherbini/taratil/internal/verse"
	ttsmock "github.com/sherbini/taratil/pkg/provider/tts/mock"
)

// testConfig returns a minimal config backed by an injected verse store.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
		Verses: config.VersesConfig{
			Source: config.SourceYAML,
		},
	}
}

func seededStore(t *testing.T) verse.Store {
	t.Helper()
	store := verse.NewMemStore()
	_, err := store.Add(context.Background(), verse.Verse{
		Reference: verse.Reference{Book: "تكوين", Chapter: 1, Verse: 1},
		Text:      "في البدء خلق الله السماوات والارض",
	})
	if err != nil {
		t.Fatalf("seed verse: %v", err)
	}
	return store
}

func TestNew_WithInjectedStore(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		app.WithVerseStore(seededStore(t)),
		app.WithAudio(&ttsmock.Provider{}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
}

func TestNew_LoadsVersePack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pack.yaml")
	pack := `pack:
  name: test
  language: ar
verses:
  - book: "تكوين"
    chapter: 1
    verse: 1
    text: "في البدء خلق الله السماوات والارض"
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	cfg := testConfig()
	cfg.Verses.Path = path

	if _, err := app.New(context.Background(), cfg); err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
}

func TestNew_MissingVersePack(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Verses.Path = filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := app.New(context.Background(), cfg); err == nil {
		t.Fatal("New() with missing verse pack did not fail")
	}
}

func TestNew_UnknownVerseSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Verses.Source = "carrier-pigeon"

	if _, err := app.New(context.Background(), cfg); err == nil {
		t.Fatal("New() with unknown verse source did not fail")
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		app.WithVerseStore(seededStore(t)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	// Give the listener a moment to come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() returned %v, want nil or context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}

func TestApp_ShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		app.WithVerseStore(seededStore(t)),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	ctx := context.Background()
	if err := application.Shutdown(ctx); err != nil {
		t.Errorf("first Shutdown() returned error: %v", err)
	}
	if err := application.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() returned error: %v", err)
	}
}
