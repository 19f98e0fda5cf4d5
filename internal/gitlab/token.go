package gitlab

import (
	"os"
	"strings"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit    AuthTokenSource = "explicit"
	AuthTokenSourcePrivateEnv  AuthTokenSource = "env:PRIVATE_TOKEN"
	AuthTokenSourceGitLabToken AuthTokenSource = "env:GITLAB_TOKEN"
)

// ResolveAuthToken resolves a GitLab personal access token.
//
// Precedence:
//  1. provided (if non-empty)
//  2. PRIVATE_TOKEN env var (historical name used by the CI scripts)
//  3. GITLAB_TOKEN env var
//
// An empty result is valid: public groups can be read anonymously.
func ResolveAuthToken(provided string) (string, AuthTokenSource) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit
	}
	if env := strings.TrimSpace(os.Getenv("PRIVATE_TOKEN")); env != "" {
		return env, AuthTokenSourcePrivateEnv
	}
	if env := strings.TrimSpace(os.Getenv("GITLAB_TOKEN")); env != "" {
		return env, AuthTokenSourceGitLabToken
	}
	return "", ""
}
