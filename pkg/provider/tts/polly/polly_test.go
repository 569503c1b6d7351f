package polly

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/sherbini/taratil/pkg/provider/tts"
)

// fakeAPI implements API in memory and counts synthesis calls.
type fakeAPI struct {
	mu         sync.Mutex
	synthCalls int
	synthErr   error
	audio      []byte
	voices     []pollytypes.Voice
	lastInput  *awspolly.SynthesizeSpeechInput
}

func (f *fakeAPI) SynthesizeSpeech(_ context.Context, params *awspolly.SynthesizeSpeechInput, _ ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthCalls++
	f.lastInput = params
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return &awspolly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader(string(f.audio))),
	}, nil
}

func (f *fakeAPI) DescribeVoices(_ context.Context, _ *awspolly.DescribeVoicesInput, _ ...func(*awspolly.Options)) (*awspolly.DescribeVoicesOutput, error) {
	return &awspolly.DescribeVoicesOutput{Voices: f.voices}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synthCalls
}

func TestNew_NilClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) did not fail")
	}
}

func TestSynthesize_UsesDefaultVoice(t *testing.T) {
	api := &fakeAPI{audio: []byte("mp3-bytes")}
	p, err := New(api)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clip, err := p.Synthesize(context.Background(), "في البدء", tts.Voice{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(clip.Audio) != "mp3-bytes" {
		t.Errorf("audio = %q, want mp3-bytes", clip.Audio)
	}
	if clip.Format != "mp3" {
		t.Errorf("format = %q, want mp3", clip.Format)
	}
	if clip.Cached {
		t.Error("fresh synthesis marked cached")
	}
	if got := string(api.lastInput.VoiceId); got != "Zeina" {
		t.Errorf("voice = %q, want Zeina", got)
	}
	if got := aws.ToString(api.lastInput.Text); got != "في البدء" {
		t.Errorf("text = %q", got)
	}
}

func TestSynthesize_MemoryCacheHit(t *testing.T) {
	api := &fakeAPI{audio: []byte("mp3-bytes")}
	p, err := New(api)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := p.Synthesize(ctx, "الرب راعي", tts.Voice{}); err != nil {
		t.Fatalf("first Synthesize: %v", err)
	}
	clip, err := p.Synthesize(ctx, "الرب راعي", tts.Voice{})
	if err != nil {
		t.Fatalf("second Synthesize: %v", err)
	}
	if !clip.Cached {
		t.Error("second synthesis not marked cached")
	}
	if api.calls() != 1 {
		t.Errorf("API called %d times, want 1", api.calls())
	}
}

func TestSynthesize_DiskCacheSurvivesNewProvider(t *testing.T) {
	dir := t.TempDir()
	api := &fakeAPI{audio: []byte("mp3-bytes")}

	p1, err := New(api, WithCacheDir(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p1.Synthesize(context.Background(), "الرب راعي", tts.Voice{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	// A new provider over the same directory must hit the disk cache.
	p2, err := New(api, WithCacheDir(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clip, err := p2.Synthesize(context.Background(), "الرب راعي", tts.Voice{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !clip.Cached {
		t.Error("disk hit not marked cached")
	}
	if api.calls() != 1 {
		t.Errorf("API called %d times, want 1", api.calls())
	}
}

func TestSynthesize_DistinctVoicesDistinctCacheKeys(t *testing.T) {
	api := &fakeAPI{audio: []byte("mp3-bytes")}
	p, err := New(api)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := p.Synthesize(ctx, "نص", tts.Voice{ID: "Zeina"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, err := p.Synthesize(ctx, "نص", tts.Voice{ID: "Hala", Engine: "neural"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if api.calls() != 2 {
		t.Errorf("API called %d times, want 2", api.calls())
	}
}

func TestSynthesize_APIError(t *testing.T) {
	api := &fakeAPI{synthErr: errors.New("throttled")}
	p, err := New(api)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "نص", tts.Voice{}); err == nil {
		t.Fatal("Synthesize did not surface API error")
	}
}

func TestWithCacheDir_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clips")
	if _, err := New(&fakeAPI{}, WithCacheDir(dir)); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat cache dir: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%q is not a directory", dir)
	}
}

func TestListVoices(t *testing.T) {
	api := &fakeAPI{voices: []pollytypes.Voice{
		{
			Id:               pollytypes.VoiceIdZeina,
			Name:             aws.String("Zeina"),
			LanguageCode:     pollytypes.LanguageCodeArb,
			Gender:           pollytypes.GenderFemale,
			SupportedEngines: []pollytypes.Engine{pollytypes.EngineStandard},
		},
		{
			Id:               pollytypes.VoiceIdHala,
			Name:             aws.String("Hala"),
			LanguageCode:     pollytypes.LanguageCodeArAe,
			Gender:           pollytypes.GenderFemale,
			SupportedEngines: []pollytypes.Engine{pollytypes.EngineNeural},
		},
	}}
	p, err := New(api)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].ID != "Zeina" || voices[0].Engine != "standard" {
		t.Errorf("voice[0] = %+v", voices[0])
	}
	if voices[1].ID != "Hala" || voices[1].Engine != "neural" {
		t.Errorf("voice[1] = %+v", voices[1])
	}
	if voices[1].Provider != "polly" {
		t.Errorf("provider = %q, want polly", voices[1].Provider)
	}
}
