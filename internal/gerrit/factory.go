package gerrit

import (
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/reviewsync/internal/execshell"
)

// SSHRunnerFactory builds the command runner used by the SSH transport.
type SSHRunnerFactory func(settings execshell.SSHConnectionSettings) (execshell.CommandRunner, error)

// TransportFactory selects and builds a Transport from configuration.
type TransportFactory struct {
	logger           *zap.Logger
	sshRunnerFactory SSHRunnerFactory
}

// NewTransportFactory creates a factory that builds SSH runners with execshell.NewSSHCommandRunner.
func NewTransportFactory(logger *zap.Logger) *TransportFactory {
	return NewTransportFactoryWithRunner(logger, defaultSSHRunnerFactory)
}

// NewTransportFactoryWithRunner creates a factory with a custom SSH runner constructor.
func NewTransportFactoryWithRunner(logger *zap.Logger, sshRunnerFactory SSHRunnerFactory) *TransportFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sshRunnerFactory == nil {
		sshRunnerFactory = defaultSSHRunnerFactory
	}
	return &TransportFactory{logger: logger, sshRunnerFactory: sshRunnerFactory}
}

// NewTransport is a convenience for NewTransportFactory(logger).Build(configuration).
func NewTransport(configuration Configuration, logger *zap.Logger) (Transport, error) {
	return NewTransportFactory(logger).Build(configuration)
}

// Build validates the configuration and returns the transport for its scheme:
// http and https select RestTransport, ssh selects SSHTransport. It performs no
// network activity; SSH connections open when the first command runs.
func (factory *TransportFactory) Build(configuration Configuration) (Transport, error) {
	sanitized := configuration.Sanitize()
	if validationError := sanitized.Validate(); validationError != nil {
		return nil, validationError
	}

	scheme, schemeError := ParseScheme(sanitized.Scheme)
	if schemeError != nil {
		return nil, schemeError
	}

	switch scheme {
	case SchemeSSH:
		return factory.buildSSHTransport(sanitized)
	default:
		return NewRestTransport(sanitized, factory.logger)
	}
}

func (factory *TransportFactory) buildSSHTransport(configuration Configuration) (Transport, error) {
	settings := execshell.SSHConnectionSettings{
		Host:                  configuration.Host,
		Port:                  configuration.ResolvedPort(),
		User:                  configuration.Username,
		PrivateKeyPath:        configuration.SSHKeyPath,
		KnownHostsPath:        configuration.SSHKnownHostsPath,
		StrictHostKeyChecking: configuration.StrictHostKeyChecking,
		DialTimeout:           configuration.Timeout,
	}

	runner, runnerError := factory.sshRunnerFactory(settings)
	if runnerError != nil {
		setting := configurationSSHKeyPathKeyConstant
		if errors.Is(runnerError, execshell.ErrSSHKnownHostsRequired) || errors.Is(runnerError, execshell.ErrSSHKnownHostsUnavailable) {
			setting = configurationSSHKnownHostsPathKeyConstant
		}
		return nil, ConfigurationError{Setting: setting, Reason: runnerError.Error()}
	}

	executor, executorError := execshell.NewShellExecutor(factory.logger, runner)
	if executorError != nil {
		return nil, executorError
	}
	return NewSSHTransport(configuration, executor)
}

func defaultSSHRunnerFactory(settings execshell.SSHConnectionSettings) (execshell.CommandRunner, error) {
	return execshell.NewSSHCommandRunner(settings)
}
