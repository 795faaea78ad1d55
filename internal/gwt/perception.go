package gwt

import (
	"fmt"
	"math"
	"sync"

	"enton/internal/prediction"
)

// SurpriseScorer turns a world observation into a surprise score.
type SurpriseScorer interface {
	Tick(state prediction.WorldState) float64
}

// PerceptionModule acts as the sensory cortex: it reports observations that
// are far from neutral surprise, in either direction.
type PerceptionModule struct {
	scorer    SurpriseScorer
	scale     float64
	threshold float64

	mu       sync.Mutex
	surprise float64
}

// NewPerceptionModule creates the module. scale and threshold <= 0 use 1.8
// and 0.2.
func NewPerceptionModule(scorer SurpriseScorer, scale, threshold float64) *PerceptionModule {
	if scale <= 0 {
		scale = 1.8
	}
	if threshold <= 0 {
		threshold = 0.2
	}
	return &PerceptionModule{
		scorer:    scorer,
		scale:     scale,
		threshold: threshold,
		surprise:  0.5,
	}
}

func (p *PerceptionModule) Name() string { return "perception" }

// UpdateState scores a new observation and caches the surprise for the next
// RunStep. Called by the runtime before each workspace tick.
func (p *PerceptionModule) UpdateState(state prediction.WorldState) float64 {
	s := p.scorer.Tick(state)
	p.mu.Lock()
	p.surprise = s
	p.mu.Unlock()
	return s
}

// Surprise returns the cached surprise.
func (p *PerceptionModule) Surprise() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surprise
}

func (p *PerceptionModule) RunStep(_ *BroadcastMessage) *BroadcastMessage {
	s := p.Surprise()
	saliency := math.Max(0, math.Min(1, math.Abs(s-0.5)*p.scale))
	if saliency <= p.threshold {
		return nil
	}

	kind := "High Predictability"
	if s > 0.5 {
		kind = "High Novelty"
	}
	return NewMessage(p.Name(), ModalityVision,
		fmt.Sprintf("Visual: %s (%.2f)", kind, s),
		saliency,
		map[string]interface{}{"surprise": s})
}
