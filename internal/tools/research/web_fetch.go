package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"enton/internal/logging"
	"enton/internal/tools"
)

// userAgent identifies enton to the sites it fetches.
const userAgent = "Mozilla/5.0 (compatible; enton/1.0)"

// Fetcher downloads pages for web_fetch.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// WebFetchTool returns a tool for fetching web pages as text.
func (f *Fetcher) WebFetchTool() *tools.Tool {
	return &tools.Tool{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its readable text",
		Category:    tools.CategoryResearch,
		Source:      "builtin",
		Execute:     f.execute,
		Schema: tools.ToolSchema{
			Required: []string{"url"},
			Properties: map[string]tools.Property{
				"url": {
					Type:        "string",
					Description: "The URL to fetch",
				},
				"max_length": {
					Type:        "integer",
					Description: "Maximum content length in characters (default: 8000)",
					Default:     8000,
				},
			},
		},
	}
}

func (f *Fetcher) execute(ctx context.Context, args map[string]any) (string, error) {
	url := tools.StringArg(args, "url")
	if url == "" {
		return "", fmt.Errorf("url is required")
	}
	maxLength := tools.IntArg(args, "max_length", 8000)
	if maxLength <= 0 {
		maxLength = 8000
	}

	logging.ToolsDebug("web_fetch: url=%s, max_length=%d", url, maxLength)
	text, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if r := []rune(text); len(r) > maxLength {
		text = string(r[:maxLength]) + "\n\n[...truncated...]"
	}
	logging.Tools("web_fetch completed: %s (%d chars)", url, len(text))
	return text, nil
}

// Fetch downloads url and converts HTML to text. Plain text and markdown
// are returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") || strings.Contains(contentType, "text/markdown") {
		return strings.TrimSpace(string(body)), nil
	}

	text, err := htmlToMarkdown(string(body), true)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return text, nil
}

// htmlToMarkdown renders the readable parts of an HTML page as lightweight
// markdown: headings, paragraphs, list items and (optionally) link targets.
func htmlToMarkdown(htmlContent string, includeLinks bool) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	w := &mdWriter{links: includeLinks}
	w.walk(doc, 0)
	return cleanMarkdown(w.sb.String()), nil
}

type mdWriter struct {
	sb    strings.Builder
	links bool
}

var headingPrefix = map[string]string{
	"h1": "# ", "h2": "## ", "h3": "### ", "h4": "#### ", "h5": "##### ", "h6": "###### ",
}

func (w *mdWriter) walk(n *html.Node, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			w.sb.WriteString(text)
			w.sb.WriteByte(' ')
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header", "form":
			return
		case "img":
			if alt := getAttr(n, "alt"); alt != "" {
				fmt.Fprintf(&w.sb, "[Image: %s] ", alt)
			}
			return
		case "br":
			w.sb.WriteByte('\n')
			return
		}
	}

	before, after := w.delimiters(n)
	w.sb.WriteString(before)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, depth+1)
	}
	w.sb.WriteString(after)
}

// delimiters returns the markup written around an element's children.
func (w *mdWriter) delimiters(n *html.Node) (string, string) {
	if n.Type != html.ElementNode {
		return "", ""
	}
	if p, ok := headingPrefix[n.Data]; ok {
		return "\n\n" + p, "\n\n"
	}
	switch n.Data {
	case "title":
		return "# ", "\n\n"
	case "p", "div", "section", "article":
		return "\n\n", ""
	case "li":
		return "\n- ", ""
	case "pre":
		return "\n\n```\n", "\n```\n\n"
	case "code":
		return "`", "`"
	case "a":
		href := getAttr(n, "href")
		if w.links && href != "" && !strings.HasPrefix(href, "#") {
			return "[", "](" + href + ")"
		}
	}
	return "", ""
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// cleanMarkdown collapses runs of blank lines and spaces and trims lines.
func cleanMarkdown(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
