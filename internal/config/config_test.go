package config

import (
	"strings"
	"testing"
)

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini default", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"already qualified", ProviderGemini, "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	t.Run("derived from app id", func(t *testing.T) {
		cfg := &Config{AppID: "APP123"}
		want := "https://api-APP123.sendbird.com"
		if got := cfg.BaseURL(); got != want {
			t.Errorf("BaseURL() = %q, want %q", got, want)
		}
	})

	t.Run("explicit override wins", func(t *testing.T) {
		cfg := &Config{AppID: "APP123", PlatformBaseURL: "http://localhost:9999/"}
		if got := cfg.BaseURL(); got != "http://localhost:9999" {
			t.Errorf("BaseURL() = %q, want trailing slash trimmed override", got)
		}
	})
}

func TestMarshalJSONMasksSecrets(t *testing.T) {
	cfg := Config{APIToken: "super-secret-platform-token"}
	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	s := string(data)
	if strings.Contains(s, "super-secret-platform-token") {
		t.Errorf("MarshalJSON() leaked API token: %s", s)
	}
	if !strings.Contains(s, maskedValue) {
		t.Errorf("MarshalJSON() = %s, want masked token", s)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		check func(string) bool
	}{
		{"empty stays empty", "", func(s string) bool { return s == "" }},
		{"short fully masked", "abc123", func(s string) bool { return s == maskedValue }},
		{"long keeps edges", "abcdefghijklmnop", func(s string) bool {
			return strings.HasPrefix(s, "ab") && strings.HasSuffix(s, "op") && strings.Contains(s, maskedValue)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.in); !tt.check(got) {
				t.Errorf("maskSecret(%q) = %q", tt.in, got)
			}
		})
	}
}
