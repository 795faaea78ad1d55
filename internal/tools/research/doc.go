// Package research provides tools that learn from the web.
//
// Tools:
//   - web_fetch: fetch a URL and convert the HTML to markdown-ish text
//   - github_learner: study a topic by reading the most starred GitHub
//     repositories about it
package research
