package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sherbini/taratil/internal/observe"
	"github.com/sherbini/taratil/internal/verse"
	"github.com/sherbini/taratil/pkg/provider/tts"
	ttsmock "github.com/sherbini/taratil/pkg/provider/tts/mock"
)

// newTestServer builds a Server around a seeded in-memory verse store and
// the given audio provider.
func newTestServer(t *testing.T, audio tts.Provider) *Server {
	t.Helper()

	store := verse.NewMemStore()
	seed := []verse.Verse{
		{
			Reference: verse.Reference{Book: "تكوين", Chapter: 1, Verse: 1},
			Text:      "فِي الْبَدْءِ خَلَقَ اللهُ السَّمَاوَاتِ وَالأَرْضَ",
		},
		{
			Reference: verse.Reference{Book: "مزمور", Chapter: 23, Verse: 1},
			Text:      "الرَّبُّ رَاعِيَّ فَلاَ يُعْوِزُنِي شَيْءٌ",
		},
	}
	if _, err := store.BulkImport(context.Background(), seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	return New(Options{
		Verses:  store,
		Audio:   audio,
		Metrics: metrics,
	})
}

func TestListVerses(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/verses")
	if err != nil {
		t.Fatalf("GET /api/verses: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var verses []verse.Verse
	if err := json.NewDecoder(resp.Body).Decode(&verses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(verses) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(verses))
	}
}

func TestListVersesFilterByBook(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/verses?book=" + "%D9%85%D8%B2%D9%85%D9%88%D8%B1")
	if err != nil {
		t.Fatalf("GET /api/verses: %v", err)
	}
	defer resp.Body.Close()

	var verses []verse.Verse
	if err := json.NewDecoder(resp.Body).Decode(&verses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(verses) != 1 {
		t.Fatalf("expected 1 verse, got %d", len(verses))
	}
	if verses[0].Reference.Book != "مزمور" {
		t.Fatalf("unexpected book %q", verses[0].Reference.Book)
	}
}

func TestListVersesBadChapter(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/verses?chapter=abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetVerse(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/verses/" + "%D8%AA%D9%83%D9%88%D9%8A%D9%86-1-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var v verse.Verse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Reference.Chapter != 1 || v.Reference.Verse != 1 {
		t.Fatalf("unexpected verse %+v", v.Reference)
	}
}

func TestGetVerseNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/verses/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListBooks(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/books")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var books []string
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %v", books)
	}
}

func TestListVoices(t *testing.T) {
	t.Parallel()

	audio := &ttsmock.Provider{Voices: []tts.Voice{
		{ID: "Zeina", Language: "arb", Provider: "polly"},
	}}
	srv := newTestServer(t, audio)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/voices")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var voices []voiceDTO
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "Zeina" {
		t.Fatalf("unexpected voices %+v", voices)
	}
}

func TestListVoicesWithoutAudio(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/voices")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestAudio(t *testing.T) {
	t.Parallel()

	audio := &ttsmock.Provider{Clip: &tts.Clip{
		Audio:  []byte("mp3bytes"),
		Format: "mp3",
		Cached: true,
	}}
	srv := newTestServer(t, audio)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/audio?verse=" + "%D8%AA%D9%83%D9%88%D9%8A%D9%86-1-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", ct)
	}
	if resp.Header.Get("X-Cache") != "hit" {
		t.Error("expected X-Cache: hit")
	}
	if calls := audio.Calls(); len(calls) != 1 {
		t.Fatalf("expected 1 synthesis call, got %d", len(calls))
	}
}

func TestAudioMissingVerseParam(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &ttsmock.Provider{Clip: &tts.Clip{Format: "mp3"}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/audio")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAudioNoAudioAvailable(t *testing.T) {
	t.Parallel()

	audio := &ttsmock.Provider{Err: tts.ErrNoAudio}
	srv := newTestServer(t, audio)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/audio?verse=" + "%D8%AA%D9%83%D9%88%D9%8A%D9%86-1-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAudioSynthesisFailure(t *testing.T) {
	t.Parallel()

	audio := &ttsmock.Provider{Err: errors.New("polly unreachable")}
	srv := newTestServer(t, audio)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/audio?verse=" + "%D8%AA%D9%83%D9%88%D9%8A%D9%86-1-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, resp.StatusCode)
		}
	}
}
