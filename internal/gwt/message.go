// Package gwt implements the global workspace: cognitive modules propose
// messages every tick and the most salient one wins conscious attention.
package gwt

import (
	"fmt"
	"time"
)

// Modalities used by the built-in modules.
const (
	ModalityVision       = "vision"
	ModalityAudio        = "audio"
	ModalityInnerSpeech  = "inner_speech"
	ModalityEmotion      = "emotion"
	ModalityIntention    = "intention"
	ModalityMemoryRecall = "memory_recall"
)

// BroadcastMessage is a module's proposal for the workspace. Modules build a
// fresh message each tick and never modify it afterwards.
type BroadcastMessage struct {
	Content   string
	Source    string
	Saliency  float64 // conventionally 0..1, not clamped
	Modality  string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// NewMessage stamps a message with the current time.
func NewMessage(source, modality, content string, saliency float64, metadata map[string]interface{}) *BroadcastMessage {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &BroadcastMessage{
		Content:   content,
		Source:    source,
		Saliency:  saliency,
		Modality:  modality,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// String renders "[source:modality] (saliency=0.75) content", with content
// cut to 50 runes.
func (m *BroadcastMessage) String() string {
	return fmt.Sprintf("[%s:%s] (saliency=%.2f) %s", m.Source, m.Modality, m.Saliency, truncate(m.Content, 50))
}

// Float returns a numeric metadata value, or def when missing.
func (m *BroadcastMessage) Float(key string, def float64) float64 {
	if m == nil {
		return def
	}
	switch v := m.Metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

// Str returns a string metadata value, or "" when missing.
func (m *BroadcastMessage) Str(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m.Metadata[key].(string)
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
