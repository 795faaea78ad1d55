package research

import (
	"enton/internal/tools"
)

// RegisterAll registers the research tools with the given registry.
func RegisterAll(registry *tools.Registry, fetcher *Fetcher, learner *GitHubLearner) error {
	for _, tool := range []*tools.Tool{fetcher.WebFetchTool(), learner.Tool()} {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
