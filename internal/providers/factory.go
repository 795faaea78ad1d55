package providers

import (
	"context"
	"sort"

	"enton/internal/config"
	"enton/internal/logging"
)

// LocalID is the endpoint served on this machine.
const LocalID = "local"

// Set holds the provider chains built from config.
type Set struct {
	LLM *Chain[LLM]
	STT *Chain[STT]
	TTS *Chain[TTS]
}

// FromConfig builds the provider chains. Endpoints that require a key but
// have none are omitted, as is Gemini without a key. gpu, when non-nil,
// guards the local endpoint.
func FromConfig(ctx context.Context, cfg *config.Config, gpu Locker) Set {
	set := Set{
		LLM: NewChain[LLM](cfg.Brain.Primary, cfg.Brain.Fallback),
		STT: NewChain[STT](cfg.Ears.Primary, cfg.Ears.Fallback),
		TTS: NewChain[TTS](cfg.Voice.Primary, cfg.Voice.Fallback),
	}

	ids := make([]string, 0, len(cfg.Providers.Endpoints))
	for id := range cfg.Providers.Endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ep := cfg.Providers.Endpoints[id]
		if ep.RequiresKey && ep.APIKey == "" {
			logging.ProvidersDebug("skipping %s: no API key", id)
			continue
		}
		c := NewOpenAI(id, ep)
		if id == LocalID && gpu != nil {
			c.WithGPU(gpu)
		}
		if ep.Model != "" {
			set.LLM.Register(c)
		}
		if c.CanTranscribe() {
			set.STT.Register(c)
		}
		if c.CanSynthesize() {
			set.TTS.Register(c)
		}
	}

	if cfg.Providers.Gemini.APIKey != "" {
		g, err := NewGemini(ctx, cfg.Providers.Gemini)
		if err != nil {
			logging.ProvidersWarn("gemini unavailable: %v", err)
		} else {
			set.LLM.Register(g)
		}
	}

	logging.Providers("providers ready: llm=%v stt=%v tts=%v", set.LLM.IDs(), set.STT.IDs(), set.TTS.IDs())
	return set
}
