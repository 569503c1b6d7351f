// Package polly provides an AWS Polly–backed reference-audio provider.
// It implements the tts.Provider interface.
//
// Synthesized clips are cached twice: an in-memory LRU for hot verses and
// an on-disk MP3 cache keyed by md5(text|voice|engine) that survives
// restarts. Both caches are consulted before calling the Polly API.
package polly

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sherbini/taratil/pkg/provider/tts"
)

const (
	// defaultVoice is Zeina, AWS Polly's Modern Standard Arabic voice.
	defaultVoice  = "Zeina"
	defaultEngine = "standard"

	// memCacheSize bounds the in-memory clip cache. Clips average a few
	// hundred KiB, so this keeps the cache under ~50 MiB.
	memCacheSize = 128
)

// API is the subset of the Polly client used by [Provider]. The concrete
// *polly.Client satisfies it; tests substitute a fake.
type API interface {
	SynthesizeSpeech(ctx context.Context, params *awspolly.SynthesizeSpeechInput, optFns ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error)
	DescribeVoices(ctx context.Context, params *awspolly.DescribeVoicesInput, optFns ...func(*awspolly.Options)) (*awspolly.DescribeVoicesOutput, error)
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithCacheDir enables the on-disk MP3 cache rooted at dir. The directory
// is created if missing.
func WithCacheDir(dir string) Option {
	return func(p *Provider) {
		p.cacheDir = dir
	}
}

// WithDefaultVoice overrides the voice used when the caller passes a
// zero-value tts.Voice. Default: Zeina (standard engine).
func WithDefaultVoice(id, engine string) Option {
	return func(p *Provider) {
		p.defaultVoice = id
		p.defaultEngine = engine
	}
}

// Provider implements tts.Provider backed by AWS Polly.
// It is safe for concurrent use.
type Provider struct {
	client        API
	cacheDir      string
	defaultVoice  string
	defaultEngine string
	mem           *lru.Cache[string, []byte]
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a Polly Provider around client (typically
// polly.NewFromConfig of an aws.Config). client must be non-nil.
func New(client API, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, errors.New("polly: client must not be nil")
	}
	mem, err := lru.New[string, []byte](memCacheSize)
	if err != nil {
		return nil, fmt.Errorf("polly: create clip cache: %w", err)
	}
	p := &Provider{
		client:        client,
		defaultVoice:  defaultVoice,
		defaultEngine: defaultEngine,
		mem:           mem,
	}
	for _, o := range opts {
		o(p)
	}
	if p.cacheDir != "" {
		if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("polly: create cache dir %q: %w", p.cacheDir, err)
		}
	}
	return p, nil
}

// Synthesize returns MP3 audio for text, consulting the in-memory and
// on-disk caches before calling the Polly API.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) (*tts.Clip, error) {
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = p.defaultVoice
	}
	engine := voice.Engine
	if engine == "" {
		engine = p.defaultEngine
	}
	key := cacheKey(text, voiceID, engine)

	if audio, ok := p.mem.Get(key); ok {
		return &tts.Clip{Audio: audio, Format: "mp3", Voice: voiceID, Cached: true}, nil
	}
	if audio, ok := p.readDisk(key); ok {
		p.mem.Add(key, audio)
		return &tts.Clip{Audio: audio, Format: "mp3", Voice: voiceID, Cached: true}, nil
	}

	out, err := p.client.SynthesizeSpeech(ctx, &awspolly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      pollytypes.VoiceId(voiceID),
		Engine:       pollytypes.Engine(engine),
		OutputFormat: pollytypes.OutputFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("polly: synthesize: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly: read audio stream: %w", err)
	}

	p.mem.Add(key, audio)
	p.writeDisk(key, audio)

	return &tts.Clip{Audio: audio, Format: "mp3", Voice: voiceID}, nil
}

// ListVoices returns Polly's Arabic voice catalogue.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	out, err := p.client.DescribeVoices(ctx, &awspolly.DescribeVoicesInput{
		LanguageCode: pollytypes.LanguageCodeArb,
	})
	if err != nil {
		return nil, fmt.Errorf("polly: describe voices: %w", err)
	}

	voices := make([]tts.Voice, 0, len(out.Voices))
	for _, v := range out.Voices {
		engine := "standard"
		for _, e := range v.SupportedEngines {
			if e == pollytypes.EngineNeural {
				engine = "neural"
				break
			}
		}
		voices = append(voices, tts.Voice{
			ID:       string(v.Id),
			Name:     aws.ToString(v.Name),
			Language: string(v.LanguageCode),
			Gender:   string(v.Gender),
			Engine:   engine,
			Provider: "polly",
		})
	}
	return voices, nil
}

// cacheKey derives the cache filename stem from the synthesis parameters.
func cacheKey(text, voiceID, engine string) string {
	sum := md5.Sum([]byte(text + "|" + voiceID + "|" + engine))
	return hex.EncodeToString(sum[:])
}

func (p *Provider) readDisk(key string) ([]byte, bool) {
	if p.cacheDir == "" {
		return nil, false
	}
	// Any read failure degrades to re-synthesizing; the cache is advisory.
	audio, err := os.ReadFile(filepath.Join(p.cacheDir, key+".mp3"))
	if err != nil {
		return nil, false
	}
	return audio, true
}

func (p *Provider) writeDisk(key string, audio []byte) {
	if p.cacheDir == "" {
		return
	}
	// Best-effort: a full disk degrades to re-synthesizing next time.
	_ = os.WriteFile(filepath.Join(p.cacheDir, key+".mp3"), audio, 0o644)
}
