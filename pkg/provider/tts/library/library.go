// Package library serves pre-recorded verse audio from a directory.
//
// Recordings are stored as <md5(normalized text)>.mp3 so lookup needs no
// index file. The library is the first backend in the reference-audio
// chain: a hit avoids synthesis entirely, a miss returns [tts.ErrNoAudio]
// and the chain falls through to a synthesizing backend.
package library

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sherbini/taratil/internal/arabic"
	"github.com/sherbini/taratil/pkg/provider/tts"
)

// Provider implements tts.Provider over a directory of recordings.
// It is read-only after construction and safe for concurrent use.
type Provider struct {
	dir string
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a library Provider rooted at dir. The directory must exist.
func New(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("library: stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library: %q is not a directory", dir)
	}
	return &Provider{dir: dir}, nil
}

// Synthesize looks up the recording for text. The voice is ignored —
// recordings are fixed. Returns [tts.ErrNoAudio] when no recording exists.
func (p *Provider) Synthesize(_ context.Context, text string, _ tts.Voice) (*tts.Clip, error) {
	path := filepath.Join(p.dir, Key(text)+".mp3")
	audio, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("library: no recording for text: %w", tts.ErrNoAudio)
	}
	if err != nil {
		return nil, fmt.Errorf("library: read %q: %w", path, err)
	}
	return &tts.Clip{Audio: audio, Format: "mp3", Cached: true}, nil
}

// ListVoices returns the single pseudo-voice representing the recordings.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{{
		ID:       "recorded",
		Name:     "Pre-recorded reading",
		Language: "arb",
		Provider: "library",
	}}, nil
}

// Key returns the filename stem for text: the md5 hex digest of its
// normalized form, so diacritic and spelling variants resolve to the same
// recording.
func Key(text string) string {
	sum := md5.Sum([]byte(arabic.Normalize(text)))
	return hex.EncodeToString(sum[:])
}
