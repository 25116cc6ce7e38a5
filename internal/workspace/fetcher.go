package workspace

import (
	"context"
	"fmt"

	"github.com/temirov/wsm/internal/execshell"
)

const (
	curlFailFlagConstant                  = "--fail"
	curlSilentFlagConstant                = "--silent"
	curlShowErrorFlagConstant             = "--show-error"
	curlLocationFlagConstant              = "--location"
	manifestDownloadErrorTemplateConstant = "unable to download manifest %s: %w"
)

// CurlExecutor runs curl. *execshell.ShellExecutor satisfies it.
type CurlExecutor interface {
	ExecuteCurl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CurlManifestFetcher downloads manifests with curl.
type CurlManifestFetcher struct {
	executor CurlExecutor
}

// NewCurlManifestFetcher constructs a fetcher that runs curl through executor.
func NewCurlManifestFetcher(executor CurlExecutor) *CurlManifestFetcher {
	return &CurlManifestFetcher{executor: executor}
}

// Fetch returns the body served at manifestURL. Redirects are followed and HTTP errors fail.
func (fetcher *CurlManifestFetcher) Fetch(executionContext context.Context, manifestURL string) ([]byte, error) {
	result, executionError := fetcher.executor.ExecuteCurl(executionContext, execshell.CommandDetails{
		Arguments: []string{curlFailFlagConstant, curlSilentFlagConstant, curlShowErrorFlagConstant, curlLocationFlagConstant, manifestURL},
	})
	if executionError != nil {
		return nil, fmt.Errorf(manifestDownloadErrorTemplateConstant, manifestURL, executionError)
	}
	return []byte(result.StandardOutput), nil
}

// commandCurlExecutor runs curl through an executor that only knows generic commands.
type commandCurlExecutor struct {
	executor CommandExecutor
}

func (adapter commandCurlExecutor) ExecuteCurl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return adapter.executor.Execute(executionContext, execshell.ShellCommand{Name: execshell.CommandCurl, Details: details})
}
