package gitlab

import "testing"

func TestResolveAuthToken(t *testing.T) {
	tests := []struct {
		name       string
		provided   string
		private    string
		gitlab     string
		wantToken  string
		wantSource AuthTokenSource
	}{
		{name: "explicit wins", provided: " tok ", private: "p", gitlab: "g", wantToken: "tok", wantSource: AuthTokenSourceExplicit},
		{name: "PRIVATE_TOKEN before GITLAB_TOKEN", private: "p", gitlab: "g", wantToken: "p", wantSource: AuthTokenSourcePrivateEnv},
		{name: "GITLAB_TOKEN", private: "  ", gitlab: "g", wantToken: "g", wantSource: AuthTokenSourceGitLabToken},
		{name: "anonymous", wantToken: "", wantSource: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRIVATE_TOKEN", tt.private)
			t.Setenv("GITLAB_TOKEN", tt.gitlab)

			tok, src := ResolveAuthToken(tt.provided)
			if tok != tt.wantToken || src != tt.wantSource {
				t.Fatalf("ResolveAuthToken() = (%q, %q), want (%q, %q)", tok, src, tt.wantToken, tt.wantSource)
			}
		})
	}
}
