package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"enton/internal/logging"
	"enton/internal/tools"
)

// GitHubLearnerName is the tool name the executive looks for.
const GitHubLearnerName = "github_learner"

// Repo is a search hit.
type Repo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
}

// GitHubLearner studies topics by reading the READMEs of the most starred
// repositories about them.
type GitHubLearner struct {
	Client  *http.Client
	Token   string
	APIBase string // default https://api.github.com
	RawBase string // default https://raw.githubusercontent.com

	// Repos and ReadmeChars bound how much is read per study.
	Repos       int
	ReadmeChars int
}

// NewGitHubLearner returns a learner with the public GitHub endpoints.
func NewGitHubLearner(token string, timeout time.Duration) *GitHubLearner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHubLearner{
		Client:      &http.Client{Timeout: timeout},
		Token:       token,
		APIBase:     "https://api.github.com",
		RawBase:     "https://raw.githubusercontent.com",
		Repos:       2,
		ReadmeChars: 2000,
	}
}

// Tool exposes Study as the github_learner tool.
func (g *GitHubLearner) Tool() *tools.Tool {
	return &tools.Tool{
		Name:        GitHubLearnerName,
		Description: "Study a technical topic by reading the READMEs of popular GitHub repositories about it",
		Category:    tools.CategoryResearch,
		Source:      "builtin",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return g.Study(ctx, tools.StringArg(args, "topic"))
		},
		Schema: tools.ToolSchema{
			Required: []string{"topic"},
			Properties: map[string]tools.Property{
				"topic": {Type: "string", Description: `The topic to study (e.g. "rust actix")`},
			},
		},
	}
}

// Study searches for topic and returns notes on the top repositories.
func (g *GitHubLearner) Study(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	logging.Tools("github_learner: studying %q", topic)

	repos, err := g.Search(ctx, topic, g.Repos+1)
	if err != nil {
		return "", err
	}
	if len(repos) == 0 {
		return fmt.Sprintf("Found no interesting repositories about '%s' right now.", topic), nil
	}

	var sections []string
	for _, r := range repos {
		if len(sections) == g.Repos {
			break
		}
		readme := g.readme(ctx, r.FullName)
		if readme == "" {
			continue
		}
		if runes := []rune(readme); len(runes) > g.ReadmeChars {
			readme = string(runes[:g.ReadmeChars]) + "\n...(truncated)..."
		}
		desc := r.Description
		if desc == "" {
			desc = "No description"
		}
		sections = append(sections, fmt.Sprintf("## Repository: %s (%d stars)\n%s\n\nNotes:\n%s", r.FullName, r.Stars, desc, readme))
	}
	if len(sections) == 0 {
		return fmt.Sprintf("Found repositories about '%s' but could not read their READMEs.", topic), nil
	}
	return fmt.Sprintf("# Study: %s\n\n%s", topic, strings.Join(sections, "\n\n")), nil
}

// Search returns up to n repositories for query, most starred first.
func (g *GitHubLearner) Search(ctx context.Context, query string, n int) ([]Repo, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", fmt.Sprint(n))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.APIBase+"/search/repositories?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("github search: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Items []Repo `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode github search: %w", err)
	}
	return out.Items, nil
}

// readme fetches README.md trying the usual branches. "" when none exists.
func (g *GitHubLearner) readme(ctx context.Context, fullName string) string {
	for _, branch := range []string{"HEAD", "master", "main"} {
		u := fmt.Sprintf("%s/%s/%s/README.md", g.RawBase, fullName, branch)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return ""
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := g.Client.Do(req)
		if err != nil {
			logging.ToolsDebug("github_learner: readme %s: %v", u, err)
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
		resp.Body.Close()
		if err == nil && resp.StatusCode == http.StatusOK {
			return strings.TrimSpace(string(body))
		}
	}
	return ""
}
