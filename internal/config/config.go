package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	ForgeGitLab = "gitlab"
	ForgeGitHub = "github"

	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"

	DefaultBaseURL  = "https://git.nomics.world"
	DefaultGroup    = "dbnomics-fetchers"
	DefaultImporter = "dbnomics/dbnomics-importer"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/dashboard.go and internal/cli/root.go
	// - the YAML file overlay in file.go
	Source     Source
	Targeting  Targeting
	Jobs       Jobs
	Enrichment Enrichment
	Output     Output
	Runtime    Runtime
}

type Source struct {
	// Forge selects the CI backend (see --forge).
	// Allowed values: gitlab, github.
	Forge string

	// BaseURL is the forge root URL (see --base-url). For GitHub an empty value
	// targets github.com; any other value is a GitHub Enterprise Server root.
	BaseURL string

	// Token is an explicit access token (see --token). When empty the backend
	// resolves one from its environment.
	Token string
}

type Targeting struct {
	// Group is the namespace holding fetcher projects: a GitLab group or a
	// GitHub organization (see --group).
	Group string

	// Importer is the path of the shared importer project (see --importer).
	Importer string

	// Fetchers restricts the run to these provider slugs (see --fetchers).
	// Values may be provided as repeated flags and/or comma-separated lists.
	Fetchers []string

	// Featured is the highlight set; matching providers are star-marked (see --featured).
	Featured []string
}

type Jobs struct {
	// FetcherLimit is how many of the latest jobs are read per fetcher (see --fetcher-jobs).
	FetcherLimit int

	// ImporterLimit is how many of the latest importer jobs are read (see --importer-jobs).
	ImporterLimit int

	// Ref keeps only fetcher jobs that ran on this branch (see --ref).
	Ref string

	// AllBranches disables the Ref filter (see --all-branches).
	AllBranches bool
}

type Enrichment struct {
	// Enabled turns the search index lookups on (see --enrich).
	Enabled bool

	// SearchURL is the Solr core base URL; "/select" is appended (see --search-url).
	SearchURL string
}

type Output struct {
	// Format selects the report renderer (see --format).
	// Allowed values: html, markdown, text, json.
	Format string
}

type Runtime struct {
	// Concurrency bounds how many fetchers are processed at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout bounds the whole run (see --timeout). Must be > 0.
	Timeout time.Duration

	// Verbose logs every HTTP round trip at debug level (see --verbose).
	Verbose bool

	// LogLevel is one of debug, info, warn, error (see --log-level).
	LogLevel string

	// LogFormat is text or json (see --log-format).
	LogFormat string

	// ConfigFile is an optional YAML file overlaid on defaults (see --config).
	ConfigFile string
}

func New() *Config {
	return &Config{
		Source: Source{
			Forge:   ForgeGitLab,
			BaseURL: DefaultBaseURL,
		},
		Targeting: Targeting{
			Group:    DefaultGroup,
			Importer: DefaultImporter,
		},
		Jobs: Jobs{
			FetcherLimit:  20,
			ImporterLimit: 100,
			Ref:           "master",
		},
		Output: Output{
			Format: FormatHTML,
		},
		Runtime: Runtime{
			Concurrency: 1,
			Timeout:     30 * time.Minute,
			LogLevel:    "warn",
			LogFormat:   "text",
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Fetchers = splitCommaList(c.Targeting.Fetchers)
	c.Targeting.Featured = splitCommaList(c.Targeting.Featured)

	c.Source.Forge = normalizeEnumValue(c.Source.Forge)
	if c.Source.Forge != ForgeGitLab && c.Source.Forge != ForgeGitHub {
		return fmt.Errorf("unsupported --forge: %q (must be one of: gitlab, github)", c.Source.Forge)
	}

	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.Forge == ForgeGitHub && c.Source.BaseURL == DefaultBaseURL {
		// The GitLab default means nothing to the github forge: use github.com.
		c.Source.BaseURL = ""
	}
	if c.Source.BaseURL == "" && c.Source.Forge == ForgeGitLab {
		return errors.New("--base-url is required for the gitlab forge")
	}
	if c.Source.BaseURL != "" {
		if err := checkHTTPURL(c.Source.BaseURL); err != nil {
			return fmt.Errorf("invalid --base-url value: %w", err)
		}
	}

	c.Targeting.Group = strings.Trim(strings.TrimSpace(c.Targeting.Group), "/")
	if c.Targeting.Group == "" {
		return errors.New("--group must not be empty")
	}
	c.Targeting.Importer = strings.Trim(strings.TrimSpace(c.Targeting.Importer), "/")
	if !strings.Contains(c.Targeting.Importer, "/") {
		return fmt.Errorf("invalid --importer value %q: expected NAMESPACE/PROJECT", c.Targeting.Importer)
	}

	if c.Jobs.FetcherLimit <= 0 {
		return errors.New("--fetcher-jobs must be >= 1")
	}
	if c.Jobs.ImporterLimit <= 0 {
		return errors.New("--importer-jobs must be >= 1")
	}
	c.Jobs.Ref = strings.TrimSpace(c.Jobs.Ref)
	if c.Jobs.Ref == "" && !c.Jobs.AllBranches {
		return errors.New("--ref must not be empty (use --all-branches to disable the branch filter)")
	}

	c.Enrichment.SearchURL = strings.TrimRight(strings.TrimSpace(c.Enrichment.SearchURL), "/")
	if c.Enrichment.Enabled {
		if c.Enrichment.SearchURL == "" {
			return errors.New("--enrich requires --search-url")
		}
		if err := checkHTTPURL(c.Enrichment.SearchURL); err != nil {
			return fmt.Errorf("invalid --search-url value: %w", err)
		}
	}

	c.Output.Format = normalizeEnumValue(c.Output.Format)
	switch c.Output.Format {
	case FormatHTML, FormatMarkdown, FormatText, FormatJSON:
	default:
		return fmt.Errorf("unsupported --format: %q (must be one of: html, markdown, text, json)", c.Output.Format)
	}

	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	c.Runtime.LogFormat = normalizeEnumValue(c.Runtime.LogFormat)
	if c.Runtime.LogFormat != "text" && c.Runtime.LogFormat != "json" {
		return fmt.Errorf("unsupported --log-format: %q (must be one of: text, json)", c.Runtime.LogFormat)
	}
	c.Runtime.LogLevel = normalizeEnumValue(c.Runtime.LogLevel)

	return nil
}

// IsFeatured reports whether slug belongs to the highlight set.
func (c *Config) IsFeatured(slug string) bool {
	for _, f := range c.Targeting.Featured {
		if f == slug {
			return true
		}
	}
	return false
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q: expected an http(s) URL", raw)
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
