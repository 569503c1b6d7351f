// Package espeak provides a local synthesis fallback using the espeak-ng
// command-line synthesizer. It implements the tts.Provider interface.
//
// Quality is well below cloud synthesis — this backend exists so that
// reference audio keeps working offline, as the last entry in the fallback
// chain.
package espeak

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/sherbini/taratil/pkg/provider/tts"
)

const defaultBinary = "espeak-ng"

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBinary overrides the synthesizer binary name or path.
// Default: "espeak-ng".
func WithBinary(path string) Option {
	return func(p *Provider) {
		p.binary = path
	}
}

// WithSpeed sets the speaking rate in words per minute. espeak-ng's own
// default (175) is brisk for learners; the provider default is 140.
func WithSpeed(wpm int) Option {
	return func(p *Provider) {
		if wpm > 0 {
			p.speed = wpm
		}
	}
}

// WithVoice sets the espeak-ng voice used when the caller passes a
// zero-value tts.Voice. Default: "ar".
func WithVoice(id string) Option {
	return func(p *Provider) {
		if id != "" {
			p.voice = id
		}
	}
}

// Provider implements tts.Provider by shelling out to espeak-ng.
// It is read-only after construction and safe for concurrent use; each
// synthesis runs its own subprocess.
type Provider struct {
	binary string
	voice  string
	speed  int
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates an espeak-ng Provider. It verifies the binary is on PATH so
// a misconfigured host fails at startup rather than on first synthesis.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		binary: defaultBinary,
		voice:  "ar",
		speed:  140,
	}
	for _, o := range opts {
		o(p)
	}
	if _, err := exec.LookPath(p.binary); err != nil {
		return nil, fmt.Errorf("espeak: %w", err)
	}
	return p, nil
}

// Synthesize runs espeak-ng and returns the WAV it writes to stdout. The
// voice maps to an espeak-ng voice name; a zero voice uses the configured
// default.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) (*tts.Clip, error) {
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = p.voice
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", voiceID,
		"-s", fmt.Sprintf("%d", p.speed),
		"--stdout",
		text,
	)
	audio, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("espeak: run %s: %w", p.binary, err)
	}
	return &tts.Clip{Audio: audio, Format: "wav", Voice: voiceID}, nil
}

// ListVoices returns the default voice this fallback uses.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{{
		ID:       p.voice,
		Name:     "espeak-ng " + p.voice,
		Language: p.voice,
		Provider: "espeak",
	}}, nil
}
