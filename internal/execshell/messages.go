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
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	changeQueryPrefixConstant               = "change:"
	projectFlagConstant                     = "--project"
)

const (
	gerritQuerySubcommandNameConstant  = "query"
	gerritReviewSubcommandNameConstant = "review"
)

const (
	gerritQueryStartTemplateConstant             = "Querying changed files for change %s"
	gerritQuerySuccessTemplateConstant           = "Retrieved changed files for change %s"
	gerritQueryFailureTemplateConstant           = "Failed to query changed files for change %s (exit code %d%s)"
	gerritQueryExecutionFailureTemplateConstant  = "Unable to query changed files for change %s: %s"
	gerritReviewStartTemplateConstant            = "Submitting review for %s in %s"
	gerritReviewSuccessTemplateConstant          = "Submitted review for %s in %s"
	gerritReviewFailureTemplateConstant          = "Failed to submit review for %s in %s (exit code %d%s)"
	gerritReviewExecutionFailureTemplateConstant = "Unable to submit review for %s in %s: %s"
	unknownValueLabelConstant                    = "unknown"
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

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGerrit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(command.Details.Arguments[0]) {
	case gerritQuerySubcommandNameConstant:
		return formatter.describeQueryMessage(command, result, failure, stage)
	case gerritReviewSubcommandNameConstant:
		return formatter.describeReviewMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeQueryMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	change := unknownValueLabelConstant
	for _, argument := range command.Details.Arguments {
		if strings.HasPrefix(argument, changeQueryPrefixConstant) {
			change = strings.TrimPrefix(argument, changeQueryPrefixConstant)
		}
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gerritQueryStartTemplateConstant, change)
	case messageStageSuccess:
		return fmt.Sprintf(gerritQuerySuccessTemplateConstant, change)
	case messageStageFailure:
		return fmt.Sprintf(gerritQueryFailureTemplateConstant, change, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gerritQueryExecutionFailureTemplateConstant, change, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeReviewMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	project := unknownValueLabelConstant
	for argumentIndex, argument := range arguments {
		if argument == projectFlagConstant && argumentIndex+1 < len(arguments) {
			project = arguments[argumentIndex+1]
		}
	}
	revision := arguments[len(arguments)-1]

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gerritReviewStartTemplateConstant, revision, project)
	case messageStageSuccess:
		return fmt.Sprintf(gerritReviewSuccessTemplateConstant, revision, project)
	case messageStageFailure:
		return fmt.Sprintf(gerritReviewFailureTemplateConstant, revision, project, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gerritReviewExecutionFailureTemplateConstant, revision, project, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := command.CommandLine()
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
