package main

import (
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil, func(string) string { return "" })
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, defaultBaseURL)
	}
	if cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, defaultTimeout)
	}
}

func TestParseConfig_FlagsOverrideEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TUTOR_BASE_URL":
			return "http://env.example.com"
		case "TUTOR_EMAIL":
			return "env@example.com"
		}
		return ""
	}

	cfg, err := parseConfig([]string{"-base-url", "http://flag.example.com", "-timeout", "5s"}, getenv)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.BaseURL != "http://flag.example.com" {
		t.Errorf("BaseURL = %q, want the flag value", cfg.BaseURL)
	}
	if cfg.Email != "env@example.com" {
		t.Errorf("Email = %q, want the env value", cfg.Email)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
}

func TestParseConfig_EnvFallback(t *testing.T) {
	getenv := func(key string) string {
		if key == "TUTOR_BASE_URL" {
			return "  http://env.example.com  "
		}
		return ""
	}
	cfg, err := parseConfig(nil, getenv)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.BaseURL != "http://env.example.com" {
		t.Errorf("BaseURL = %q, want trimmed env value", cfg.BaseURL)
	}
}

func TestParseConfig_RejectsUnknownFlags(t *testing.T) {
	if _, err := parseConfig([]string{"-no-such-flag"}, nil); err == nil {
		t.Error("expected error for unknown flag")
	}
}
