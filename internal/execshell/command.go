package execshell

import (
	"context"
	"strings"
)

const (
	commandGerritNameConstant        = "gerrit"
	commandArgumentSeparatorConstant = " "
	singleQuoteConstant              = "'"
	escapedSingleQuoteConstant       = `'"'"'`
	shellSafeCharactersConstant      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_=+:,./@%"
	emptyArgumentPlaceholderConstant = "''"
)

// CommandName identifies a remote executable.
type CommandName string

// CommandGerrit is the Gerrit SSH command suite.
const CommandGerrit CommandName = CommandName(commandGerritNameConstant)

// CommandDetails describes a single invocation.
type CommandDetails struct {
	Arguments     []string
	StandardInput []byte
}

// ShellCommand combines a CommandName with its details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes a ShellCommand. A non-zero exit status is reported in the
// result, not as an error; errors are reserved for failures to run the command at all.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandLine renders the command as a single POSIX shell line, quoting arguments
// that contain characters outside the safe set.
func (command ShellCommand) CommandLine() string {
	parts := make([]string, 0, len(command.Details.Arguments)+1)
	parts = append(parts, quoteArgument(string(command.Name)))
	for _, argument := range command.Details.Arguments {
		parts = append(parts, quoteArgument(argument))
	}
	return strings.Join(parts, commandArgumentSeparatorConstant)
}

func quoteArgument(argument string) string {
	if len(argument) == 0 {
		return emptyArgumentPlaceholderConstant
	}
	if strings.Trim(argument, shellSafeCharactersConstant) == "" {
		return argument
	}
	return singleQuoteConstant + strings.ReplaceAll(argument, singleQuoteConstant, escapedSingleQuoteConstant) + singleQuoteConstant
}
