package execshell

import "go.uber.org/zap"

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// structuredCommandEventObserver logs lifecycle events as structured debug entries.
type structuredCommandEventObserver struct {
	logger *zap.Logger
}

func (observer structuredCommandEventObserver) CommandStarted(command ShellCommand) {
	observer.logger.Debug(commandStartedLogMessageConstant, commandFields(command)...)
}

func (observer structuredCommandEventObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	fields := append(commandFields(command), zap.Int(logFieldExitCodeConstant, result.ExitCode))
	if result.ExitCode != 0 {
		fields = append(fields, zap.String(logFieldStandardErrorConstant, result.StandardError))
		observer.logger.Debug(commandFailedLogMessageConstant, fields...)
		return
	}
	observer.logger.Debug(commandCompletedLogMessageConstant, fields...)
}

func (observer structuredCommandEventObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	observer.logger.Debug(commandExecutionFailedLogMessageConstant, append(commandFields(command), zap.Error(failure))...)
}

// consoleCommandEventObserver logs lifecycle events as human-readable sentences.
type consoleCommandEventObserver struct {
	logger    *zap.Logger
	formatter CommandMessageFormatter
}

func (observer consoleCommandEventObserver) CommandStarted(command ShellCommand) {
	observer.logger.Debug(observer.formatter.BuildStartedMessage(command))
}

func (observer consoleCommandEventObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	if result.ExitCode != 0 {
		observer.logger.Debug(observer.formatter.BuildFailureMessage(command, result))
		return
	}
	observer.logger.Debug(observer.formatter.BuildSuccessMessage(command))
}

func (observer consoleCommandEventObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	observer.logger.Warn(observer.formatter.BuildExecutionFailureMessage(command, failure))
}

func commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}
}
