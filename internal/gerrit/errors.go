package gerrit

import (
	"errors"
	"fmt"
)

const (
	configurationErrorTemplateConstant     = "invalid gerrit configuration %s: %s"
	transportErrorTemplateConstant         = "gerrit %s failed: %v"
	serializationErrorTemplateConstant     = "gerrit %s serialization failed: %v"
	domainErrorTemplateConstant            = "gerrit review %s stage failed: %v"
	unexpectedStatusMessageConstant        = "unexpected response status"
	unexpectedStatusDetailTemplateConstant = "%w %d: %s"
)

// Operation names the backend interaction that failed.
type Operation string

const (
	OperationListFiles    Operation = "list files"
	OperationSubmitReview Operation = "submit review"
)

// DomainStage identifies the facade stage a DomainError originates from.
type DomainStage string

const (
	DomainStageFormat    DomainStage = "format"
	DomainStageTransport DomainStage = "transport"
	DomainStageParse     DomainStage = "parse"
)

// ErrUnexpectedStatus marks a REST response outside the 2xx range.
var ErrUnexpectedStatus = errors.New(unexpectedStatusMessageConstant)

// ConfigurationError reports a missing or invalid setting. It is fatal to the run.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Setting, configurationError.Reason)
}

// TransportError reports a network, authentication, or remote-status failure.
type TransportError struct {
	Operation Operation
	Cause     error
}

func (transportError TransportError) Error() string {
	return fmt.Sprintf(transportErrorTemplateConstant, transportError.Operation, transportError.Cause)
}

// Unwrap exposes the underlying cause.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// SerializationError reports a payload that could not be encoded or a response
// that could not be decoded.
type SerializationError struct {
	Operation Operation
	Cause     error
}

func (serializationError SerializationError) Error() string {
	return fmt.Sprintf(serializationErrorTemplateConstant, serializationError.Operation, serializationError.Cause)
}

// Unwrap exposes the underlying cause.
func (serializationError SerializationError) Unwrap() error {
	return serializationError.Cause
}

// DomainError is the single error type surfaced by ReviewFacade.
type DomainError struct {
	Stage DomainStage
	Cause error
}

func (domainError DomainError) Error() string {
	return fmt.Sprintf(domainErrorTemplateConstant, domainError.Stage, domainError.Cause)
}

// Unwrap exposes the underlying cause.
func (domainError DomainError) Unwrap() error {
	return domainError.Cause
}

func newUnexpectedStatusError(statusCode int, body string) error {
	return fmt.Errorf(unexpectedStatusDetailTemplateConstant, ErrUnexpectedStatus, statusCode, body)
}
