package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Scoring
	if t := cfg.Scoring.PassThreshold; t != 0 && (t <= 0 || t > 1) {
		errs = append(errs, fmt.Errorf("scoring.pass_threshold %.2f is out of range (0, 1]", t))
	}

	// Session
	if cfg.Session.SilenceTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.silence_timeout must not be negative, got %s", cfg.Session.SilenceTimeout))
	}
	if cfg.Session.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("session.max_duration must not be negative, got %s", cfg.Session.MaxDuration))
	}
	if st, md := cfg.Session.SilenceTimeout, cfg.Session.MaxDuration; st > 0 && md > 0 && st > md {
		errs = append(errs, fmt.Errorf("session.silence_timeout %s exceeds session.max_duration %s", st, md))
	}
	seen := make(map[string]bool, len(cfg.Session.Languages))
	for i, lang := range cfg.Session.Languages {
		if lang == "" {
			errs = append(errs, fmt.Errorf("session.languages[%d] must not be empty", i))
			continue
		}
		if seen[lang] {
			errs = append(errs, fmt.Errorf("session.languages[%d] %q is a duplicate", i, lang))
		}
		seen[lang] = true
	}

	// Verses
	if cfg.Verses.Source != "" && !cfg.Verses.Source.IsValid() {
		errs = append(errs, fmt.Errorf("verses.source %q is invalid; valid values: yaml, postgres", cfg.Verses.Source))
	}
	if cfg.Verses.Source == SourceYAML && cfg.Verses.Path == "" {
		errs = append(errs, errors.New("verses.path is required when verses.source is yaml"))
	}
	if cfg.Verses.Source == SourcePostgres && cfg.Verses.PostgresDSN == "" {
		errs = append(errs, errors.New("verses.postgres_dsn is required when verses.source is postgres"))
	}

	// Audio
	if p := cfg.Audio.Polly; p != nil {
		if p.Region == "" {
			errs = append(errs, errors.New("audio.polly.region is required when polly is set"))
		}
		if (p.AccessKeyID == "") != (p.SecretAccessKey == "") {
			errs = append(errs, errors.New("audio.polly.access_key_id and secret_access_key must be set together"))
		}
	}
	if e := cfg.Audio.Espeak; e != nil && e.Speed < 0 {
		errs = append(errs, fmt.Errorf("audio.espeak.speed must not be negative, got %d", e.Speed))
	}
	if cfg.Audio.BreakerTrip < 0 {
		errs = append(errs, fmt.Errorf("audio.breaker_trip must not be negative, got %d", cfg.Audio.BreakerTrip))
	}
	if cfg.Audio.BreakerCoolOff < 0 {
		errs = append(errs, fmt.Errorf("audio.breaker_cool_off must not be negative, got %s", cfg.Audio.BreakerCoolOff))
	}
	if cfg.Audio.LibraryDir == "" && cfg.Audio.Polly == nil && cfg.Audio.Espeak == nil {
		slog.Warn("no audio backend configured; verse playback will be unavailable")
	}

	return errors.Join(errs...)
}
