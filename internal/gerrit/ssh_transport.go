package gerrit

import (
	"context"
	"errors"

	"github.com/temirov/reviewsync/internal/execshell"
)

const (
	sshQuerySubcommandConstant         = "query"
	sshReviewSubcommandConstant        = "review"
	sshJSONFormatFlagConstant          = "--format=JSON"
	sshFilesFlagConstant               = "--files"
	sshCurrentPatchSetFlagConstant     = "--current-patch-set"
	sshChangeQueryPrefixConstant       = "change:"
	sshSingleResultLimitConstant       = "limit:1"
	sshProjectFlagConstant             = "--project"
	sshJSONInputFlagConstant           = "--json"
	sshChangeRevisionSeparatorConstant = ","
	sshExecutorMissingMessageConstant  = "gerrit command executor not configured"
)

// ErrGerritExecutorNotConfigured indicates the SSH transport was built without an executor.
var ErrGerritExecutorNotConfigured = errors.New(sshExecutorMissingMessageConstant)

// GerritCommandExecutor runs one Gerrit SSH command.
type GerritCommandExecutor interface {
	ExecuteGerrit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SSHTransport drives the backend through its SSH command interface.
type SSHTransport struct {
	executor GerritCommandExecutor
	project  string
	change   string
	revision string
}

// NewSSHTransport binds the change coordinates to an executor.
func NewSSHTransport(configuration Configuration, executor GerritCommandExecutor) (*SSHTransport, error) {
	if executor == nil {
		return nil, ErrGerritExecutorNotConfigured
	}
	return &SSHTransport{
		executor: executor,
		project:  configuration.Project,
		change:   configuration.Change,
		revision: configuration.Revision,
	}, nil
}

// ResponseFormat reports the query stream format.
func (transport *SSHTransport) ResponseFormat() ResponseFormat {
	return ResponseFormatQueryStream
}

// FetchChangedFiles queries the change's current patch set with its file list.
func (transport *SSHTransport) FetchChangedFiles(executionContext context.Context) ([]byte, error) {
	details := execshell.CommandDetails{Arguments: []string{
		sshQuerySubcommandConstant,
		sshJSONFormatFlagConstant,
		sshFilesFlagConstant,
		sshCurrentPatchSetFlagConstant,
		sshChangeQueryPrefixConstant + transport.change,
		sshSingleResultLimitConstant,
	}}
	return transport.run(executionContext, OperationListFiles, details)
}

// SubmitReview streams the JSON payload to the review command's standard input.
func (transport *SSHTransport) SubmitReview(executionContext context.Context, payload []byte) ([]byte, error) {
	details := execshell.CommandDetails{
		Arguments: []string{
			sshReviewSubcommandConstant,
			sshProjectFlagConstant,
			transport.project,
			sshJSONInputFlagConstant,
			transport.change + sshChangeRevisionSeparatorConstant + transport.revision,
		},
		StandardInput: payload,
	}
	return transport.run(executionContext, OperationSubmitReview, details)
}

func (transport *SSHTransport) run(executionContext context.Context, operation Operation, details execshell.CommandDetails) ([]byte, error) {
	executionResult, executionError := transport.executor.ExecuteGerrit(executionContext, details)
	if executionError != nil {
		return nil, TransportError{Operation: operation, Cause: executionError}
	}
	return []byte(executionResult.StandardOutput), nil
}

var _ Transport = (*SSHTransport)(nil)
