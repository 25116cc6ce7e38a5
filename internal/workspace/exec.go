package workspace

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/wsm/internal/execshell"
	"github.com/temirov/wsm/internal/faults"
	"github.com/temirov/wsm/internal/orchestrator"
	"github.com/temirov/wsm/internal/vcs"
)

const (
	// OperationExec names the exec report.
	OperationExec = "exec"

	emptyCommandMessageConstant        = "a command is required"
	commandExitedTemplateConstant      = "%s exited with code %d"
	commandNotExecutedTemplateConstant = "%s could not be executed"
)

// ErrCommandRequired indicates that exec was called without a command.
var ErrCommandRequired = errors.New(emptyCommandMessageConstant)

// Exec runs commandName with arguments in every repository of the current manifest.
func (service *Service) Exec(executionContext context.Context, state State, commandName string, arguments []string) (Report, error) {
	if len(strings.TrimSpace(commandName)) == 0 {
		return Report{}, ErrCommandRequired
	}

	currentManifest, readError := service.readCurrent(state)
	if readError != nil {
		return Report{}, readError
	}

	results := service.orchestrator.Run(executionContext, currentManifest, func(actionContext context.Context, target orchestrator.Target) (vcs.Output, error) {
		command := execshell.ShellCommand{
			Name:    execshell.CommandName(commandName),
			Details: execshell.CommandDetails{Arguments: arguments, WorkingDirectory: target.Directory},
		}
		executionResult, executionError := service.executor.Execute(actionContext, command)
		if executionError == nil {
			return vcs.Output{StandardOutput: executionResult.StandardOutput, StandardError: executionResult.StandardError}, nil
		}

		var failedCommand execshell.CommandFailedError
		if errors.As(executionError, &failedCommand) {
			output := vcs.Output{StandardOutput: failedCommand.Result.StandardOutput, StandardError: failedCommand.Result.StandardError}
			return output, faults.Newf(faults.KindCommandFailed, commandExitedTemplateConstant, commandName, failedCommand.Result.ExitCode).
				WithPath(target.Path).
				WithDiagnostic(strings.TrimSpace(failedCommand.Result.StandardError), failedCommand.Result.ExitCode)
		}
		return vcs.Output{}, faults.Newf(faults.KindCommandFailed, commandNotExecutedTemplateConstant, commandName).WithPath(target.Path).WithCause(executionError)
	})

	return service.finish(Report{Operation: OperationExec, ManifestName: state.CurrentManifestName, Results: results}), nil
}
