// Package classify extracts semantic labels from unstructured job traces.
//
// Job variables are not exposed by the forge APIs, so the CI scripts echo them
// into the log ("Running job download", "Importing provider ecb") and the
// dashboard reads them back from there.
package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// Job kinds produced by the fetcher classifier.
const (
	KindDownload = "download"
	KindConvert  = "convert"
)

// Classifier maps a job trace to at most one label.
type Classifier interface {
	// Classify returns ok=false when the trace carries no label, and an
	// *AmbiguousLabelError when it carries more than one distinct label.
	Classify(trace string) (label string, ok bool, err error)
}

// AmbiguousLabelError is raised when a trace yields several distinct labels.
// A well-formed job log never does, so callers treat it as fatal.
type AmbiguousLabelError struct {
	Pattern string
	Labels  []string
}

func (e *AmbiguousLabelError) Error() string {
	return fmt.Sprintf("trace matches %q with %d distinct labels: %s", e.Pattern, len(e.Labels), strings.Join(e.Labels, ", "))
}

// RegexClassifier labels a trace with the first capture group of a pattern.
type RegexClassifier struct {
	re *regexp.Regexp
}

// NewRegexClassifier compiles pattern, which must have exactly one capture group.
func NewRegexClassifier(pattern string) (*RegexClassifier, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile classifier pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("classifier pattern %q must have exactly one capture group, has %d", pattern, re.NumSubexp())
	}
	return &RegexClassifier{re: re}, nil
}

func (c *RegexClassifier) Classify(trace string) (string, bool, error) {
	matches := c.re.FindAllStringSubmatch(trace, -1)
	if len(matches) == 0 {
		return "", false, nil
	}

	var labels []string
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		label := m[1]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	if len(labels) > 1 {
		return "", false, &AmbiguousLabelError{Pattern: c.re.String(), Labels: labels}
	}
	return labels[0], true, nil
}

// Trace conventions of the fetcher and importer CI templates.
const (
	FetcherPattern  = `Running job ([^$\s]+)`
	ImporterPattern = `Importing provider ([^$.\s]+)`
)

// NewFetcherClassifier labels fetcher jobs with their kind (download, convert).
func NewFetcherClassifier() Classifier {
	return &RegexClassifier{re: regexp.MustCompile(FetcherPattern)}
}

// NewImporterClassifier labels importer jobs with the imported provider slug.
func NewImporterClassifier() Classifier {
	return &RegexClassifier{re: regexp.MustCompile(ImporterPattern)}
}
