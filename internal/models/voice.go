package models

import "voice-ledger-service/internal/service/audio"

// VoiceEvent is one inbound voice message. It lives for a single pipeline run.
type VoiceEvent struct {
	SubmitterID string
	ChatID      string
	Audio       audio.Source
}
