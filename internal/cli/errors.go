package cli

import (
	"regexp"
	"strings"

	gh "fetcherdash/internal/github"
)

// requestLine matches the "GET https://host/path: " prefix that the GitLab
// and GitHub SDKs put in front of API errors.
var requestLine = regexp.MustCompile(`\b(?:GET|HEAD|POST|PUT|PATCH|DELETE) https?://\S+: `)

// presentError renders a fatal error for stderr. Without verbose, request
// URLs are scrubbed; the provider or project context added by the engine is
// kept.
func presentError(err error, verbose bool) string {
	if err == nil {
		return "unknown error"
	}

	msg := strings.TrimSpace(err.Error())
	if !verbose {
		msg = strings.TrimSpace(requestLine.ReplaceAllString(msg, ""))
	}
	if msg == "" {
		msg = "API request failed"
	}

	if gh.IsRateLimited(err) {
		msg += "\nHint: the GitHub API rate limit was reached; authenticate with GITHUB_TOKEN or retry later."
	}
	return msg
}
