package prediction

import (
	"math"
	"sync"
	"time"

	"enton/internal/config"
	"enton/internal/logging"
)

// Options tune surprise scoring.
type Options struct {
	SaveInterval      time.Duration
	ColdStartSurprise float64 // returned while the model is too uncertain
	UncertaintyCutoff float64
	PresenceWeight    float64
	ActivityWeight    float64
	Now               func() time.Time
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		SaveInterval:      5 * time.Minute,
		ColdStartSurprise: 0.1,
		UncertaintyCutoff: 0.8,
		PresenceWeight:    0.7,
		ActivityWeight:    0.3,
		Now:               time.Now,
	}
}

// OptionsFromConfig builds Options from the prediction config section.
func OptionsFromConfig(c config.PredictionConfig) Options {
	o := DefaultOptions()
	o.SaveInterval = c.GetSaveInterval()
	if c.ColdStartSurprise > 0 {
		o.ColdStartSurprise = c.ColdStartSurprise
	}
	if c.UncertaintyCutoff > 0 {
		o.UncertaintyCutoff = c.UncertaintyCutoff
	}
	if c.PresenceWeight > 0 || c.ActivityWeight > 0 {
		o.PresenceWeight = c.PresenceWeight
		o.ActivityWeight = c.ActivityWeight
	}
	return o
}

// Engine scores surprise against the world model, then learns from the
// observation.
type Engine struct {
	mu       sync.Mutex
	model    *WorldModel
	opts     Options
	loaded   bool
	lastSave time.Time
	surprise float64
}

// NewEngine creates an engine over model. The model is loaded from disk on
// the first Tick.
func NewEngine(model *WorldModel, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		model:    model,
		opts:     opts,
		lastSave: opts.Now(),
	}
}

// Model returns the underlying world model.
func (e *Engine) Model() *WorldModel { return e.model }

// Surprise returns the most recent surprise score.
func (e *Engine) Surprise() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surprise
}

// Tick predicts the state's bucket, scores the observation, learns from it,
// and persists the model when the save interval has elapsed.
func (e *Engine) Tick(state WorldState) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureLoaded()

	pred := e.model.Predict(state.Timestamp)
	e.surprise = e.score(pred, state)
	e.model.Update(state)

	if now := e.opts.Now(); now.Sub(e.lastSave) > e.opts.SaveInterval {
		if err := e.model.Save(); err != nil {
			logging.PredictionError("world model save failed: %v", err)
		}
		e.lastSave = now
	}

	logging.PredictionDebug("bucket=%s present=%v p=%.2f u=%.2f surprise=%.2f",
		state.BucketKey(), state.UserPresent, pred.PPresent, pred.Uncertainty, e.surprise)
	return e.surprise
}

func (e *Engine) score(pred Prediction, state WorldState) float64 {
	if pred.Uncertainty > e.opts.UncertaintyCutoff {
		return e.opts.ColdStartSurprise
	}

	presence := pred.PPresent
	if state.UserPresent {
		presence = 1 - pred.PPresent
	}

	activity := 0.0
	if state.UserPresent {
		activity = 1 - pred.PActivity[state.activity()]
	}

	s := e.opts.PresenceWeight*presence + e.opts.ActivityWeight*activity
	return math.Max(0, math.Min(1, s))
}

// ensureLoaded reads the model from disk once. Saving an unloaded model
// would replace the file with an empty table. Callers hold e.mu.
func (e *Engine) ensureLoaded() {
	if !e.loaded {
		e.model.Load()
		e.loaded = true
	}
}

// Shutdown persists the model, loading it first if no tick has run yet.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureLoaded()
	if err := e.model.Save(); err != nil {
		logging.PredictionError("world model save on shutdown failed: %v", err)
		return err
	}
	return nil
}
