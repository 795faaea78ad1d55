// Package selfmodel is enton's model of itself: mood, senses, counters and
// host resources, rendered as an introspection line for prompts.
package selfmodel

import (
	"math"
	"time"
)

// DecayPerMinute is how fast engagement fades without stimulus. Social
// decays at half this rate.
const DecayPerMinute = 0.02

// Mood holds the two mood axes, each in [0,1].
type Mood struct {
	Engagement float64 `json:"engagement"`
	Social     float64 `json:"social"`
	lastUpdate time.Time
}

// NewMood returns the resting mood.
func NewMood(now time.Time) Mood {
	return Mood{Engagement: 0.5, Social: 0.3, lastUpdate: now}
}

// Tick applies time decay since the last tick.
func (m *Mood) Tick(now time.Time) {
	if m.lastUpdate.IsZero() {
		m.lastUpdate = now
		return
	}
	min := now.Sub(m.lastUpdate).Minutes()
	if min < 0 {
		min = 0
	}
	m.Engagement = math.Max(0, m.Engagement-DecayPerMinute*min)
	m.Social = math.Max(0, m.Social-DecayPerMinute*min*0.5)
	m.lastUpdate = now
}

func (m *Mood) addEngagement(d float64) { m.Engagement = clamp(m.Engagement + d) }
func (m *Mood) addSocial(d float64)     { m.Social = clamp(m.Social + d) }

// OnInteraction reacts to someone talking to enton.
func (m *Mood) OnInteraction() {
	m.addEngagement(0.15)
	m.addSocial(0.2)
}

// OnDetection reacts to a vision detection label.
func (m *Mood) OnDetection(label string) {
	switch label {
	case "cat":
		m.addEngagement(0.3)
	case "person":
		m.addSocial(0.15)
	}
}

// OnError reacts to an internal failure.
func (m *Mood) OnError() { m.addEngagement(-0.1) }

// OnIdle reacts to nothing happening.
func (m *Mood) OnIdle() { m.addEngagement(-0.05) }

// Label names the mood from the average of both axes.
func (m Mood) Label() string {
	avg := (m.Engagement + m.Social) / 2
	switch {
	case avg >= 0.7:
		return "excited"
	case avg >= 0.4:
		return "calm"
	case avg >= 0.2:
		return "bored"
	}
	return "sluggish"
}

func clamp(v float64) float64 { return math.Max(0, math.Min(1, v)) }
