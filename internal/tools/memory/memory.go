// Package memory exposes the episodic store to the brain as the remember
// and recall tools.
package memory

import (
	"context"
	"fmt"
	"strings"

	"enton/internal/store"
	"enton/internal/tools"
)

// Memory is the part of the store the tools need.
type Memory interface {
	Remember(ctx context.Context, kind, content string, tags []string) (int64, error)
	Recall(ctx context.Context, query string, limit int) ([]store.Episode, error)
}

// RememberTool stores a fact or note.
func RememberTool(m Memory) *tools.Tool {
	return &tools.Tool{
		Name:        "remember",
		Description: "Store something worth remembering for later (a fact about the user, a note, a lesson learned)",
		Category:    tools.CategoryMemory,
		Source:      "builtin",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			content := tools.StringArg(args, "content")
			if strings.TrimSpace(content) == "" {
				return "", fmt.Errorf("content is required")
			}
			kind := tools.StringArg(args, "kind")
			if kind == "" {
				kind = store.KindFact
			}
			id, err := m.Remember(ctx, kind, content, stringList(args["tags"]))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Remembered (#%d).", id), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"content"},
			Properties: map[string]tools.Property{
				"content": {Type: "string", Description: "What to remember"},
				"kind": {
					Type:        "string",
					Description: "Kind of memory",
					Default:     store.KindFact,
					Enum:        []any{store.KindFact, store.KindConversation, store.KindStudy, store.KindObservation},
				},
				"tags": {Type: "array", Description: "Keywords to find it later", Items: &tools.PropertyItems{Type: "string"}},
			},
		},
	}
}

// RecallTool searches memory by keyword.
func RecallTool(m Memory) *tools.Tool {
	return &tools.Tool{
		Name:        "recall",
		Description: "Search long-term memory by keywords; returns the most recent matches",
		Category:    tools.CategoryMemory,
		Source:      "builtin",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := tools.StringArg(args, "query")
			if strings.TrimSpace(query) == "" {
				return "", fmt.Errorf("query is required")
			}
			episodes, err := m.Recall(ctx, query, tools.IntArg(args, "limit", 5))
			if err != nil {
				return "", err
			}
			return FormatEpisodes(query, episodes), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {Type: "string", Description: "Keywords to search for"},
				"limit": {Type: "integer", Description: "Maximum results", Default: 5},
			},
		},
	}
}

// FormatEpisodes renders recall results one per line.
func FormatEpisodes(query string, episodes []store.Episode) string {
	if len(episodes) == 0 {
		return fmt.Sprintf("Nothing remembered about '%s'.", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d memories about '%s':\n", len(episodes), query)
	for _, e := range episodes {
		fmt.Fprintf(&sb, "- [%s %s] %s", e.CreatedAt.Format("2006-01-02 15:04"), e.Kind, e.Content)
		if len(e.Tags) > 0 {
			fmt.Fprintf(&sb, " (tags: %s)", strings.Join(e.Tags, ", "))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RegisterAll registers remember and recall.
func RegisterAll(registry *tools.Registry, m Memory) error {
	for _, t := range []*tools.Tool{RememberTool(m), RecallTool(m)} {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func stringList(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return strings.Split(vv, ",")
	}
	return nil
}
