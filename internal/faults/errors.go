package faults

import (
	"errors"
	"fmt"
	"strings"
)

const (
	errorPathContextTemplateConstant = "%s (%s)"
	errorCauseTemplateConstant       = "%s: %v"
	errorDiagnosticTemplateConstant  = "%s: %s"
)

// Kind classifies a failure.
type Kind string

// Failure kinds raised by the engine and its collaborators.
const (
	KindInvalidRepositoryPath       Kind = "invalid-repository-path"
	KindUnknownRepositoryKind       Kind = "unknown-repository-kind"
	KindBackendUnavailable          Kind = "backend-unavailable"
	KindBackendOperation            Kind = "backend-operation-error"
	KindManifestNotFound            Kind = "manifest-not-found"
	KindCannotDeleteCurrentManifest Kind = "cannot-delete-current-manifest"
	KindNamingConflict              Kind = "naming-conflict"
	KindCommandFailed               Kind = "command-failed"
	KindCancelled                   Kind = "cancelled"
	KindWorkspaceNotInitialized     Kind = "workspace-not-initialized"
	KindWorkspaceAlreadyInitialized Kind = "workspace-already-initialized"
	KindRepositoryAlreadyManaged    Kind = "repository-already-managed"
	KindPathOutsideWorkspace        Kind = "path-outside-workspace"
	KindUnclassified                Kind = "error"
)

// Error is a classified failure with its repository context.
type Error struct {
	Kind       Kind
	Message    string
	Path       string
	URL        string
	Diagnostic string
	ExitCode   int
	Cause      error
}

// New constructs an Error of the provided kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the provided kind using a format template.
func Newf(kind Kind, messageTemplate string, arguments ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(messageTemplate, arguments...)}
}

// WithPath returns a copy of the error bound to a repository path.
func (failure *Error) WithPath(repositoryPath string) *Error {
	duplicate := *failure
	duplicate.Path = repositoryPath
	return &duplicate
}

// WithURL returns a copy of the error bound to a remote URL.
func (failure *Error) WithURL(remoteURL string) *Error {
	duplicate := *failure
	duplicate.URL = remoteURL
	return &duplicate
}

// WithDiagnostic returns a copy of the error carrying raw tool output and exit code.
func (failure *Error) WithDiagnostic(diagnostic string, exitCode int) *Error {
	duplicate := *failure
	duplicate.Diagnostic = diagnostic
	duplicate.ExitCode = exitCode
	return &duplicate
}

// WithCause returns a copy of the error wrapping an underlying error.
func (failure *Error) WithCause(cause error) *Error {
	duplicate := *failure
	duplicate.Cause = cause
	return &duplicate
}

func (failure *Error) Error() string {
	message := failure.Message
	if len(message) == 0 {
		message = string(failure.Kind)
	}
	if len(failure.Path) > 0 {
		message = fmt.Sprintf(errorPathContextTemplateConstant, message, failure.Path)
	}
	trimmedDiagnostic := strings.TrimSpace(failure.Diagnostic)
	if len(trimmedDiagnostic) > 0 {
		return fmt.Sprintf(errorDiagnosticTemplateConstant, message, trimmedDiagnostic)
	}
	if failure.Cause != nil {
		return fmt.Sprintf(errorCauseTemplateConstant, message, failure.Cause)
	}
	return message
}

// Unwrap exposes the wrapped cause.
func (failure *Error) Unwrap() error {
	return failure.Cause
}

// KindOf reports the kind of the first *Error in the chain, or KindUnclassified.
func KindOf(err error) Kind {
	var failure *Error
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return KindUnclassified
}

// HasKind reports whether err carries the provided kind.
func HasKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
