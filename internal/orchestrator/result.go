package orchestrator

import (
	"errors"

	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/vcs"
)

// Fault is the captured form of a per-repository failure.
type Fault struct {
	Type       string `yaml:"type"`
	Message    string `yaml:"message"`
	Path       string `yaml:"path,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Diagnostic string `yaml:"diagnostic,omitempty"`
	ExitCode   int    `yaml:"exit_code,omitempty"`
}

// NewFault captures err for the repository at repositoryPath.
func NewFault(repositoryPath string, remoteURL string, err error) *Fault {
	fault := &Fault{
		Type:    string(faults.KindOf(err)),
		Message: err.Error(),
		Path:    repositoryPath,
		URL:     remoteURL,
	}

	var classified *faults.Error
	if errors.As(err, &classified) {
		if len(classified.Message) > 0 {
			fault.Message = classified.Message
		}
		if len(classified.URL) > 0 {
			fault.URL = classified.URL
		}
		fault.Diagnostic = classified.Diagnostic
		fault.ExitCode = classified.ExitCode
		if len(fault.Diagnostic) == 0 && classified.Cause != nil {
			fault.Diagnostic = classified.Cause.Error()
		}
	}
	return fault
}

// RepositoryResult is the outcome of one repository in a batch.
type RepositoryResult struct {
	Path   string
	Output vcs.Output
	Fault  *Fault
	// Unresolved marks repositories whose backend could not be determined; the action never ran.
	Unresolved bool
}

// Succeeded reports whether the action completed without a fault.
func (result RepositoryResult) Succeeded() bool {
	return result.Fault == nil
}

// Results lists repository outcomes in plan order.
type Results []RepositoryResult

// Failures returns the results that carry a fault.
func (results Results) Failures() Results {
	failures := make(Results, 0)
	for _, result := range results {
		if !result.Succeeded() {
			failures = append(failures, result)
		}
	}
	return failures
}

// FailedOverall is true only when every repository failed to resolve a backend.
func (results Results) FailedOverall() bool {
	if len(results) == 0 {
		return false
	}
	for _, result := range results {
		if !result.Unresolved {
			return false
		}
	}
	return true
}
