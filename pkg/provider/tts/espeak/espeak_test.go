package espeak

import (
	"context"
	"testing"
)

func TestNew_MissingBinary(t *testing.T) {
	if _, err := New(WithBinary("espeak-ng-definitely-not-installed")); err == nil {
		t.Fatal("New with a missing binary did not fail")
	}
}

func TestListVoices_ReflectsConfiguredVoice(t *testing.T) {
	// Bypass New to avoid requiring espeak-ng on the test host.
	p := &Provider{binary: "true", voice: "ar", speed: 140}

	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("got %d voices, want 1", len(voices))
	}
	if voices[0].ID != "ar" {
		t.Errorf("voice = %q, want ar", voices[0].ID)
	}
	if voices[0].Provider != "espeak" {
		t.Errorf("provider = %q, want espeak", voices[0].Provider)
	}
}
