// Package events defines the typed events that flow between enton's
// perception, cognition and action components, and the Bus that carries them.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event type. Handlers are registered per kind.
type Kind string

const (
	KindDetection     Kind = "detection"
	KindActivity      Kind = "activity"
	KindEmotion       Kind = "emotion"
	KindTranscription Kind = "transcription"
	KindSpeechRequest Kind = "speech_request"
	KindBrainResponse Kind = "brain_response"
	KindFace          Kind = "face"
	KindSound         Kind = "sound"
	KindSceneChange   Kind = "scene_change"
	KindSkill         Kind = "skill"
	KindSystem        Kind = "system"
)

// Event is implemented by every event carried on the Bus.
type Event interface {
	Kind() Kind
	Meta() Base
}

// Base carries fields common to all events.
type Base struct {
	ID        string
	Timestamp time.Time
}

// Meta returns the common event fields.
func (b Base) Meta() Base { return b }

// NewBase returns a Base with a fresh ID stamped now.
func NewBase() Base {
	return Base{ID: uuid.NewString(), Timestamp: time.Now()}
}

// BBox is a pixel bounding box (x1, y1, x2, y2).
type BBox [4]int

// DetectionEvent reports an object detected by vision.
type DetectionEvent struct {
	Base
	Label      string
	Confidence float64
	BBox       BBox
	FrameW     int
	FrameH     int
	CameraID   string
}

func (DetectionEvent) Kind() Kind { return KindDetection }

// ActivityEvent reports a recognized person activity ("acenando", "no celular").
type ActivityEvent struct {
	Base
	PersonIndex int
	Activity    string
	CameraID    string
}

func (ActivityEvent) Kind() Kind { return KindActivity }

// EmotionEvent reports a facial emotion.
type EmotionEvent struct {
	Base
	PersonIndex int
	Emotion     string // localized label
	EmotionEN   string // english label: happy, sad, angry, fear, surprised, neutral
	Score       float64
	BBox        BBox
	CameraID    string
}

func (EmotionEvent) Kind() Kind { return KindEmotion }

// TranscriptionEvent carries recognized speech.
type TranscriptionEvent struct {
	Base
	Text     string
	IsFinal  bool
	Language string
	Provider string
}

func (TranscriptionEvent) Kind() Kind { return KindTranscription }

// SpeechRequest asks Voice to say something. Higher priority is more urgent.
type SpeechRequest struct {
	Base
	Text     string
	Priority int
}

func (SpeechRequest) Kind() Kind { return KindSpeechRequest }

// BrainResponse carries text produced by the Brain.
type BrainResponse struct {
	Base
	Text   string
	Source string // provider id
}

func (BrainResponse) Kind() Kind { return KindBrainResponse }

// FaceEvent reports a recognized (or unknown) face.
type FaceEvent struct {
	Base
	Identity   string
	Confidence float64
	BBox       BBox
	CameraID   string
}

func (FaceEvent) Kind() Kind { return KindFace }

// SoundEvent reports a classified ambient sound.
type SoundEvent struct {
	Base
	Label      string
	Confidence float64
}

func (SoundEvent) Kind() Kind { return KindSound }

// SceneChangeEvent is emitted when the visual scene changes significantly.
type SceneChangeEvent struct {
	Base
	CameraID       string
	NewObjects     []string
	RemovedObjects []string
}

func (SceneChangeEvent) Kind() Kind { return KindSceneChange }

// Skill event kinds.
const (
	SkillLoaded   = "loaded"
	SkillUnloaded = "unloaded"
	SkillRejected = "rejected"
)

// SkillEvent is emitted when a runtime skill is loaded, rejected or removed.
type SkillEvent struct {
	Base
	Action string // SkillLoaded, SkillUnloaded, SkillRejected
	Name   string
	Detail string
}

func (SkillEvent) Kind() Kind { return KindSkill }

// SystemEvent reports lifecycle and state changes (startup, shutdown,
// awareness_change, desire_activated, ...).
type SystemEvent struct {
	Base
	Type   string
	Detail string
}

func (SystemEvent) Kind() Kind { return KindSystem }
