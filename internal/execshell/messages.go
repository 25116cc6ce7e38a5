package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
)

const (
	gitRevParseSubcommandNameConstant    = "rev-parse"
	gitShowToplevelFlagConstant          = "--show-toplevel"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitRemoteSubcommandNameConstant      = "remote"
	gitRemoteGetURLSubcommandConstant    = "get-url"
	gitStatusSubcommandNameConstant      = "status"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitCreateBranchFlagConstant          = "-b"
	gitBranchSubcommandNameConstant      = "branch"
	gitTagSubcommandNameConstant         = "tag"
	gitMergeSubcommandNameConstant       = "merge"
	gitCloneSubcommandNameConstant       = "clone"
	urlSchemeSeparatorConstant           = "://"
)

const (
	gitToplevelStartTemplateConstant           = "Analyzing repository at %s"
	gitToplevelSuccessTemplateConstant         = "%s is a Git working tree"
	gitToplevelFailureTemplateConstant         = "Could not confirm %s is a Git working tree (exit code %d%s)"
	gitRevisionStartTemplateConstant           = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant         = "Resolved %s in %s"
	gitRevisionFailureTemplateConstant         = "Failed to resolve %s in %s (exit code %d%s)"
	gitCurrentBranchStartTemplateConstant      = "Identifying current branch in %s"
	gitCurrentBranchSuccessTemplateConstant    = "Identified current branch in %s"
	gitCurrentBranchFailureTemplateConstant    = "%s is not on a branch (exit code %d%s)"
	gitRemoteListStartTemplateConstant         = "Listing remotes in %s"
	gitRemoteListSuccessTemplateConstant       = "Listed remotes in %s"
	gitRemoteListFailureTemplateConstant       = "Failed to list remotes in %s (exit code %d%s)"
	gitRemoteLookupStartTemplateConstant       = "Checking %s remote for %s"
	gitRemoteLookupSuccessTemplateConstant     = "Read %s remote for %s"
	gitRemoteLookupFailureTemplateConstant     = "Failed to read %s remote for %s (exit code %d%s)"
	gitStatusStartTemplateConstant             = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant           = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant           = "Failed to review working tree status in %s (exit code %d%s)"
	gitCheckoutStartTemplateConstant           = "Switching %s to %s"
	gitCheckoutSuccessTemplateConstant         = "%s now on %s"
	gitCheckoutFailureTemplateConstant         = "Failed to switch %s to %s (exit code %d%s)"
	gitBranchCreationStartTemplateConstant     = "Creating branch %s in %s"
	gitBranchCreationSuccessTemplateConstant   = "Created branch %s in %s"
	gitBranchCreationFailureTemplateConstant   = "Failed to create branch %s in %s (exit code %d%s)"
	gitBranchListStartTemplateConstant         = "Listing branches in %s"
	gitBranchListSuccessTemplateConstant       = "Listed branches in %s"
	gitBranchListFailureTemplateConstant       = "Failed to list branches in %s (exit code %d%s)"
	gitTagStartTemplateConstant                = "Creating tag %s in %s"
	gitTagSuccessTemplateConstant              = "Created tag %s in %s"
	gitTagFailureTemplateConstant              = "Failed to create tag %s in %s (exit code %d%s)"
	gitMergeStartTemplateConstant              = "Merging %s into %s"
	gitMergeSuccessTemplateConstant            = "Merged %s into %s"
	gitMergeFailureTemplateConstant            = "Failed to merge %s into %s (exit code %d%s)"
	gitCloneStartTemplateConstant              = "Cloning %s into %s"
	gitCloneSuccessTemplateConstant            = "Cloned %s into %s"
	gitCloneFailureTemplateConstant            = "Failed to clone %s into %s (exit code %d%s)"
	curlDownloadStartTemplateConstant          = "Downloading %s"
	curlDownloadSuccessTemplateConstant        = "Downloaded %s"
	curlDownloadFailureTemplateConstant        = "Failed to download %s (exit code %d%s)"
	subcommandExecutionFailureTemplateConstant = "%s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

// stageTemplates holds the start, success and failure templates for one kind of command.
// Every template takes the same leading arguments; failure templates append exit code and stderr.
type stageTemplates struct {
	start   string
	success string
	failure string
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandCurl:
		return formatter.describeCurlMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(arguments[0])
	switch subcommand {
	case gitRevParseSubcommandNameConstant:
		if containsArgument(arguments, gitShowToplevelFlagConstant) {
			return formatter.renderStage(stageTemplates{gitToplevelStartTemplateConstant, gitToplevelSuccessTemplateConstant, gitToplevelFailureTemplateConstant}, result, failure, stage, workingDirectory)
		}
		revision := formatter.ensureValue(formatter.argumentAtIndex(arguments, len(arguments)-1))
		return formatter.renderStage(stageTemplates{gitRevisionStartTemplateConstant, gitRevisionSuccessTemplateConstant, gitRevisionFailureTemplateConstant}, result, failure, stage, revision, workingDirectory)
	case gitSymbolicRefSubcommandNameConstant:
		return formatter.renderStage(stageTemplates{gitCurrentBranchStartTemplateConstant, gitCurrentBranchSuccessTemplateConstant, gitCurrentBranchFailureTemplateConstant}, result, failure, stage, workingDirectory)
	case gitRemoteSubcommandNameConstant:
		if formatter.argumentAtIndex(arguments, 1) == gitRemoteGetURLSubcommandConstant {
			remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
			return formatter.renderStage(stageTemplates{gitRemoteLookupStartTemplateConstant, gitRemoteLookupSuccessTemplateConstant, gitRemoteLookupFailureTemplateConstant}, result, failure, stage, remoteName, workingDirectory)
		}
		return formatter.renderStage(stageTemplates{gitRemoteListStartTemplateConstant, gitRemoteListSuccessTemplateConstant, gitRemoteListFailureTemplateConstant}, result, failure, stage, workingDirectory)
	case gitStatusSubcommandNameConstant:
		return formatter.renderStage(stageTemplates{gitStatusStartTemplateConstant, gitStatusSuccessTemplateConstant, gitStatusFailureTemplateConstant}, result, failure, stage, workingDirectory)
	case gitCheckoutSubcommandNameConstant:
		if formatter.argumentAtIndex(arguments, 1) == gitCreateBranchFlagConstant {
			branchName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
			return formatter.renderStage(stageTemplates{gitBranchCreationStartTemplateConstant, gitBranchCreationSuccessTemplateConstant, gitBranchCreationFailureTemplateConstant}, result, failure, stage, branchName, workingDirectory)
		}
		reference := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
		return formatter.renderStage(stageTemplates{gitCheckoutStartTemplateConstant, gitCheckoutSuccessTemplateConstant, gitCheckoutFailureTemplateConstant}, result, failure, stage, workingDirectory, reference)
	case gitBranchSubcommandNameConstant:
		return formatter.renderStage(stageTemplates{gitBranchListStartTemplateConstant, gitBranchListSuccessTemplateConstant, gitBranchListFailureTemplateConstant}, result, failure, stage, workingDirectory)
	case gitTagSubcommandNameConstant:
		tagName := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
		return formatter.renderStage(stageTemplates{gitTagStartTemplateConstant, gitTagSuccessTemplateConstant, gitTagFailureTemplateConstant}, result, failure, stage, tagName, workingDirectory)
	case gitMergeSubcommandNameConstant:
		reference := formatter.ensureValue(formatter.extractFirstNonFlagArgument(arguments[1:]))
		return formatter.renderStage(stageTemplates{gitMergeStartTemplateConstant, gitMergeSuccessTemplateConstant, gitMergeFailureTemplateConstant}, result, failure, stage, reference, workingDirectory)
	case gitCloneSubcommandNameConstant:
		cloneArguments := formatter.nonFlagArguments(arguments[1:])
		remoteURL := formatter.ensureValue(formatter.argumentAtIndex(cloneArguments, 0))
		destination := formatter.ensureValue(formatter.argumentAtIndex(cloneArguments, 1))
		return formatter.renderStage(stageTemplates{gitCloneStartTemplateConstant, gitCloneSuccessTemplateConstant, gitCloneFailureTemplateConstant}, result, failure, stage, remoteURL, destination)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeCurlMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	downloadURL := formatter.ensureValue(formatter.argumentAtIndex(arguments, len(arguments)-1))
	if !strings.Contains(downloadURL, urlSchemeSeparatorConstant) {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	return formatter.renderStage(stageTemplates{curlDownloadStartTemplateConstant, curlDownloadSuccessTemplateConstant, curlDownloadFailureTemplateConstant}, result, failure, stage, downloadURL)
}

func (formatter CommandMessageFormatter) renderStage(templates stageTemplates, result ExecutionResult, failure error, stage messageStage, values ...any) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		failureValues := append(append([]any{}, values...), result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, failureValues...)
	case messageStageExecutionFailure:
		return fmt.Sprintf(subcommandExecutionFailureTemplateConstant, fmt.Sprintf(templates.start, values...), formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) nonFlagArguments(arguments []string) []string {
	filteredArguments := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, flagPrefixConstant) {
			continue
		}
		filteredArguments = append(filteredArguments, trimmedArgument)
	}
	return filteredArguments
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	return formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 0)
}
