// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"
)

// Provider identifies a speech synthesis vendor.
type Provider string

const (
	// ProviderElevenLabs is the ElevenLabs text-to-speech API.
	ProviderElevenLabs Provider = "elevenlabs"
	// ProviderOpenAI is the OpenAI audio speech API.
	ProviderOpenAI Provider = "openai"
)

// Providers returns the known providers in display order.
func Providers() []Provider {
	return []Provider{ProviderElevenLabs, ProviderOpenAI}
}

// DisplayName returns the human readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderElevenLabs:
		return "ElevenLabs"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(p)
	}
}

// ParseProvider normalizes a provider name from log data.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elevenlabs", "eleven_labs", "eleven-labs", "11labs":
		return ProviderElevenLabs, true
	case "openai", "open_ai", "openai-tts":
		return ProviderOpenAI, true
	default:
		return Provider(s), false
	}
}

// Mode is how synthesized audio is delivered to the client.
type Mode string

const (
	// ModeStandard renders the whole clip before playback.
	ModeStandard Mode = "standard"
	// ModeStreaming plays audio chunks as they are produced.
	ModeStreaming Mode = "streaming"
)

// Modes returns the known modes in display order.
func Modes() []Mode {
	return []Mode{ModeStandard, ModeStreaming}
}

// DisplayName returns the human readable mode name.
func (m Mode) DisplayName() string {
	switch m {
	case ModeStandard:
		return "Standard"
	case ModeStreaming:
		return "Streaming"
	default:
		return string(m)
	}
}

// ParseMode normalizes a mode name from log data. Empty means standard.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "full", "rest":
		return ModeStandard, true
	case "streaming", "stream":
		return ModeStreaming, true
	default:
		return Mode(s), false
	}
}

// SpeechRequest is one row of the speech synthesis monitoring log.
type SpeechRequest struct {
	Timestamp  time.Time
	RequestID  string
	SessionID  string
	UserID     string
	Provider   Provider
	Mode       Mode
	VoiceID    string
	BatchID    string
	Error      string
	ID         int64
	TextLength int
	DurationMs int
	StatusCode int
	CacheHit   bool
	Batched    bool
}

// IsError reports whether the request failed upstream.
func (r *SpeechRequest) IsError() bool {
	return r.StatusCode >= 400
}
