package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/ui"
	"github.com/temirov/wsm/internal/utils"
	pathutils "github.com/temirov/wsm/internal/utils/path"
	"github.com/temirov/wsm/internal/vcs"
	"github.com/temirov/wsm/internal/vcs/git"
	workspacesvc "github.com/temirov/wsm/internal/workspace"
)

const (
	overallFailureTemplateConstant      = "%s failed for every repository"
	workspaceRootMissingMessageConstant = "workspace root could not be determined"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the workspace commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConsoleLoggerProvider        LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	// Backends replaces the default git backend when set.
	Backends []vcs.Backend
	// Executor runs exec commands and manifest downloads; a shell executor is used when nil.
	Executor workspacesvc.CommandExecutor
	Fetcher  workspacesvc.ManifestFetcher
}

// Build constructs every workspace command.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	return []*cobra.Command{
		builder.buildInitCommand(),
		builder.buildCreateCommand(),
		builder.buildAddCommand(),
		builder.buildDeleteCommand(),
		builder.buildListCommand(),
		builder.buildBranchCommand(),
		builder.buildCheckoutCommand(),
		builder.buildMergeCommand(),
		builder.buildStatusCommand(),
		builder.buildUpdateCommand(),
		builder.buildTagCommand(),
		builder.buildExecCommand(),
	}, nil
}

func (builder *CommandBuilder) newService(executionContext context.Context) (*workspacesvc.Service, error) {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	rootDirectory, rootError := builder.resolveRoot(executionContext, configuration)
	if rootError != nil {
		return nil, rootError
	}

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return nil, executorError
	}

	registry, registryError := builder.resolveRegistry(logger, executor, configuration)
	if registryError != nil {
		return nil, registryError
	}

	return workspacesvc.NewService(
		workspacesvc.Dependencies{Logger: logger, Registry: registry, Executor: executor, Fetcher: builder.Fetcher},
		workspacesvc.Options{RootDirectory: rootDirectory, ManifestDirectoryName: configuration.ManifestDirectory, Workers: configuration.Workers},
	)
}

// loadState builds the service and reads the workspace state for commands that need an initialized workspace.
func (builder *CommandBuilder) loadState(executionContext context.Context) (*workspacesvc.Service, workspacesvc.State, error) {
	service, serviceError := builder.newService(executionContext)
	if serviceError != nil {
		return nil, workspacesvc.State{}, serviceError
	}
	state, stateError := service.LoadState()
	if stateError != nil {
		return nil, workspacesvc.State{}, stateError
	}
	return service, state, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	return builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveRoot(executionContext context.Context, configuration CommandConfiguration) (string, error) {
	if workspaceRoot, available := utils.NewCommandContextAccessor().WorkspaceRoot(executionContext); available && len(workspaceRoot) > 0 {
		return workspaceRoot, nil
	}
	workspaceRoot, resolveError := pathutils.NewWorkspaceRootResolver().Resolve(configuration.Root, configuration.ManifestDirectory)
	if resolveError != nil {
		return "", errors.Join(errors.New(workspaceRootMissingMessageConstant), resolveError)
	}
	return workspaceRoot, nil
}

// shellExecutor is the subset of *execshell.ShellExecutor the commands rely on.
type shellExecutor interface {
	workspacesvc.CommandExecutor
	git.CommandExecutor
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (workspacesvc.CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	executorLogger := logger
	humanReadable := builder.humanReadableLogging()
	if humanReadable && builder.ConsoleLoggerProvider != nil {
		if consoleLogger := builder.ConsoleLoggerProvider(); consoleLogger != nil {
			executorLogger = consoleLogger
		}
	}
	return execshell.NewShellExecutor(executorLogger, execshell.NewOSCommandRunner(), humanReadable)
}

func (builder *CommandBuilder) resolveRegistry(logger *zap.Logger, executor workspacesvc.CommandExecutor, configuration CommandConfiguration) (*vcs.Registry, error) {
	if len(builder.Backends) > 0 {
		return vcs.NewRegistry(logger, builder.Backends...)
	}

	gitExecutor, supportsGit := executor.(shellExecutor)
	if !supportsGit {
		return vcs.NewRegistry(logger)
	}
	gitBackend := git.NewBackend(gitExecutor, git.Options{PreferredRemote: configuration.PreferredRemote, CommandTimeout: configuration.BackendTimeout})
	return vcs.NewRegistry(logger, gitBackend)
}

// printReport renders report to standard output and its summary to standard error.
// A report in which no repository could be resolved fails the command.
func printReport(command *cobra.Command, report workspacesvc.Report) error {
	renderer := ui.ReportRenderer{}
	if renderError := renderer.Render(command.OutOrStdout(), report); renderError != nil {
		return renderError
	}
	if summaryError := renderer.RenderSummary(command.ErrOrStderr(), report); summaryError != nil {
		return summaryError
	}
	if report.Results.FailedOverall() {
		return fmt.Errorf(overallFailureTemplateConstant, report.Operation)
	}
	return nil
}
