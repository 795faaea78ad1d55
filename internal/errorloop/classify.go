package errorloop

import (
	"context"
	"errors"
	"strings"
)

// Category classifies a failure so retries can be steered.
type Category int

const (
	CategoryRateLimit Category = iota
	CategoryTimeout
	CategoryToolNotFound
	CategoryParse
	CategoryConnection
	CategoryPermission
	CategoryUnknown
)

// String returns the category name used as ErrorRecord.ErrorType.
func (c Category) String() string {
	names := []string{
		"rate_limit",
		"timeout",
		"tool_not_found",
		"parse",
		"connection",
		"permission",
		"unknown",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// Hint returns the retry advice for the category.
func (c Category) Hint() string {
	hints := map[Category]string{
		CategoryRateLimit:    "HINT: Rate limit reached. Keep the call simple.",
		CategoryTimeout:      "HINT: Timed out. Try a faster approach.",
		CategoryToolNotFound: "HINT: Tool not found. Use another available tool or answer without tools.",
		CategoryParse:        "HINT: Parsing failed. Reply with plain text instead of JSON.",
		CategoryConnection:   "HINT: Service unavailable. Avoid external dependencies.",
		CategoryPermission:   "HINT: Permission denied. Try a different path or resource.",
	}
	return hints[c]
}

// Classify picks the primary category of err.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	cats := matchAll(strings.ToLower(err.Error()))
	if len(cats) == 0 {
		return CategoryUnknown
	}
	return cats[0]
}

// matchAll returns every category whose patterns appear in msg, in
// declaration order.
func matchAll(msg string) []Category {
	var out []Category
	if containsAny(msg, "429", "rate", "limit") {
		out = append(out, CategoryRateLimit)
	}
	if containsAny(msg, "timeout", "deadline", "timed out") {
		out = append(out, CategoryTimeout)
	}
	if strings.Contains(msg, "tool") && containsAny(msg, "not found", "unknown") {
		out = append(out, CategoryToolNotFound)
	}
	if containsAny(msg, "json", "parse", "decode") {
		out = append(out, CategoryParse)
	}
	if containsAny(msg, "connection", "connect", "refused") {
		out = append(out, CategoryConnection)
	}
	if containsAny(msg, "permission", "denied", "forbidden") {
		out = append(out, CategoryPermission)
	}
	return out
}

// containsAny returns true if s contains any of the patterns.
func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
