package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fetcherdash/internal/flags"
)

// File is the YAML form of the configuration. Every field is optional; unset
// fields leave the corresponding Config value alone.
//
//	forge: gitlab
//	base_url: https://git.nomics.world
//	group: dbnomics-fetchers
//	featured: [ecb, imf, insee]
//	enrich: true
//	search_url: https://solr.example.org/solr/dbnomics
type File struct {
	Forge    *string `yaml:"forge"`
	BaseURL  *string `yaml:"base_url"`
	Group    *string `yaml:"group"`
	Importer *string `yaml:"importer"`

	Fetchers []string `yaml:"fetchers"`
	Featured []string `yaml:"featured"`

	FetcherJobs  *int    `yaml:"fetcher_jobs"`
	ImporterJobs *int    `yaml:"importer_jobs"`
	Ref          *string `yaml:"ref"`
	AllBranches  *bool   `yaml:"all_branches"`

	Enrich    *bool   `yaml:"enrich"`
	SearchURL *string `yaml:"search_url"`

	Format *string `yaml:"format"`

	Concurrency *int    `yaml:"concurrency"`
	Timeout     *string `yaml:"timeout"`
	LogLevel    *string `yaml:"log_level"`
	LogFormat   *string `yaml:"log_format"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseFile(b)
}

func ParseFile(b []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &f, nil
}

// Apply overlays the file on c. changed reports whether a flag was set
// explicitly on the command line; those values win over the file.
func (f *File) Apply(c *Config, changed func(flag string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	setString := func(flag string, src *string, dst *string) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setInt := func(flag string, src *int, dst *int) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setBool := func(flag string, src *bool, dst *bool) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}

	setString(flags.FlagForge, f.Forge, &c.Source.Forge)
	setString(flags.FlagBaseURL, f.BaseURL, &c.Source.BaseURL)
	setString(flags.FlagGroup, f.Group, &c.Targeting.Group)
	setString(flags.FlagImporter, f.Importer, &c.Targeting.Importer)
	if f.Fetchers != nil && !changed(flags.FlagFetchers) {
		c.Targeting.Fetchers = append([]string(nil), f.Fetchers...)
	}
	if f.Featured != nil && !changed(flags.FlagFeatured) {
		c.Targeting.Featured = append([]string(nil), f.Featured...)
	}

	setInt(flags.FlagFetcherJobs, f.FetcherJobs, &c.Jobs.FetcherLimit)
	setInt(flags.FlagImporterJobs, f.ImporterJobs, &c.Jobs.ImporterLimit)
	setString(flags.FlagRef, f.Ref, &c.Jobs.Ref)
	setBool(flags.FlagAllBranches, f.AllBranches, &c.Jobs.AllBranches)

	setBool(flags.FlagEnrich, f.Enrich, &c.Enrichment.Enabled)
	setString(flags.FlagSearchURL, f.SearchURL, &c.Enrichment.SearchURL)

	setString(flags.FlagFormat, f.Format, &c.Output.Format)

	setInt(flags.FlagConcurrency, f.Concurrency, &c.Runtime.Concurrency)
	setString(flags.FlagLogLevel, f.LogLevel, &c.Runtime.LogLevel)
	setString(flags.FlagLogFormat, f.LogFormat, &c.Runtime.LogFormat)
	if f.Timeout != nil && !changed(flags.FlagTimeout) {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		c.Runtime.Timeout = d
	}
	return nil
}
