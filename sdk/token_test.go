package tutor

import (
	"testing"

	"github.com/prepod-ai/tutor/pkg/core/types"
)

func TestMemoryTokenStore_SetAndClear(t *testing.T) {
	s := NewMemoryTokenStore()
	s.SetToken(types.Token{AccessToken: "a1", RefreshToken: "r1"})
	if s.AccessToken() != "a1" || s.RefreshToken() != "r1" {
		t.Fatalf("store = %q/%q", s.AccessToken(), s.RefreshToken())
	}

	s.Clear()
	if s.AccessToken() != "" || s.RefreshToken() != "" {
		t.Error("Clear should empty both tokens")
	}
}

func TestMemoryTokenStore_RenewalKeepsRefreshToken(t *testing.T) {
	s := NewMemoryTokenStore()
	s.SetToken(types.Token{AccessToken: "a1", RefreshToken: "r1"})

	// A renewal response may omit the refresh token.
	s.SetToken(types.Token{AccessToken: "a2"})
	if s.AccessToken() != "a2" {
		t.Errorf("AccessToken = %q, want a2", s.AccessToken())
	}
	if s.RefreshToken() != "r1" {
		t.Errorf("RefreshToken = %q, want the original r1", s.RefreshToken())
	}
}
