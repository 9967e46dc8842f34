package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	sshNetworkConstant                   = "tcp"
	sshHostRequiredMessageConstant       = "ssh host is required"
	sshUserRequiredMessageConstant       = "ssh user is required"
	sshKeyRequiredMessageConstant        = "ssh private key path is required"
	sshKnownHostsRequiredMessageConstant = "ssh known hosts path is required when strict host key checking is enabled"
	sshReadKeyTemplateConstant           = "unable to read ssh private key %s: %w"
	sshParseKeyTemplateConstant          = "unable to parse ssh private key %s: %w"
	sshKnownHostsTemplateConstant        = "%w %s: %w"
	sshKnownHostsUnavailableConstant     = "unable to load known hosts"
	sshDialTemplateConstant              = "unable to connect to %s: %w"
	sshSessionTemplateConstant           = "unable to open ssh session: %w"
	sshRunTemplateConstant               = "ssh command failed: %w"
	sshExitStatusMissingExitCodeConstant = -1
)

// ErrSSHHostRequired indicates the connection settings carry no host.
var ErrSSHHostRequired = errors.New(sshHostRequiredMessageConstant)

// ErrSSHUserRequired indicates the connection settings carry no user.
var ErrSSHUserRequired = errors.New(sshUserRequiredMessageConstant)

// ErrSSHPrivateKeyRequired indicates the connection settings carry no private key path.
var ErrSSHPrivateKeyRequired = errors.New(sshKeyRequiredMessageConstant)

// ErrSSHKnownHostsRequired indicates strict host checking was requested without a known hosts file.
var ErrSSHKnownHostsRequired = errors.New(sshKnownHostsRequiredMessageConstant)

// ErrSSHKnownHostsUnavailable indicates the known hosts file could not be loaded.
var ErrSSHKnownHostsUnavailable = errors.New(sshKnownHostsUnavailableConstant)

// SSHConnectionSettings describes how to reach the review backend over SSH.
type SSHConnectionSettings struct {
	Host                  string
	Port                  int
	User                  string
	PrivateKeyPath        string
	KnownHostsPath        string
	StrictHostKeyChecking bool
	DialTimeout           time.Duration
}

// FileReader reads a file's contents.
type FileReader func(path string) ([]byte, error)

// SSHCommandRunner runs commands on a remote host, one connection per command.
type SSHCommandRunner struct {
	settings     SSHConnectionSettings
	clientConfig *ssh.ClientConfig
}

// NewSSHCommandRunner validates settings and prepares the client configuration using os.ReadFile.
func NewSSHCommandRunner(settings SSHConnectionSettings) (*SSHCommandRunner, error) {
	return NewSSHCommandRunnerWithReader(settings, os.ReadFile)
}

// NewSSHCommandRunnerWithReader is NewSSHCommandRunner with an injectable key reader.
func NewSSHCommandRunnerWithReader(settings SSHConnectionSettings, reader FileReader) (*SSHCommandRunner, error) {
	clientConfig, configError := BuildSSHClientConfig(settings, reader)
	if configError != nil {
		return nil, configError
	}
	return &SSHCommandRunner{settings: settings, clientConfig: clientConfig}, nil
}

// BuildSSHClientConfig loads the private key and host key policy described by settings.
func BuildSSHClientConfig(settings SSHConnectionSettings, reader FileReader) (*ssh.ClientConfig, error) {
	if len(strings.TrimSpace(settings.Host)) == 0 {
		return nil, ErrSSHHostRequired
	}
	if len(strings.TrimSpace(settings.User)) == 0 {
		return nil, ErrSSHUserRequired
	}
	if len(strings.TrimSpace(settings.PrivateKeyPath)) == 0 {
		return nil, ErrSSHPrivateKeyRequired
	}

	keyBytes, readError := reader(settings.PrivateKeyPath)
	if readError != nil {
		return nil, fmt.Errorf(sshReadKeyTemplateConstant, settings.PrivateKeyPath, readError)
	}
	signer, parseError := ssh.ParsePrivateKey(keyBytes)
	if parseError != nil {
		return nil, fmt.Errorf(sshParseKeyTemplateConstant, settings.PrivateKeyPath, parseError)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if settings.StrictHostKeyChecking {
		if len(strings.TrimSpace(settings.KnownHostsPath)) == 0 {
			return nil, ErrSSHKnownHostsRequired
		}
		knownHostsCallback, knownHostsError := knownhosts.New(settings.KnownHostsPath)
		if knownHostsError != nil {
			return nil, fmt.Errorf(sshKnownHostsTemplateConstant, ErrSSHKnownHostsUnavailable, settings.KnownHostsPath, knownHostsError)
		}
		hostKeyCallback = knownHostsCallback
	}

	return &ssh.ClientConfig{
		User:            settings.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         settings.DialTimeout,
	}, nil
}

// Address returns host:port for the configured endpoint.
func (runner *SSHCommandRunner) Address() string {
	return net.JoinHostPort(runner.settings.Host, strconv.Itoa(runner.settings.Port))
}

// Run opens a connection, executes the command line, and closes the connection.
func (runner *SSHCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	address := runner.Address()
	client, dialError := ssh.Dial(sshNetworkConstant, address, runner.clientConfig)
	if dialError != nil {
		return ExecutionResult{}, fmt.Errorf(sshDialTemplateConstant, address, dialError)
	}
	defer client.Close()

	session, sessionError := client.NewSession()
	if sessionError != nil {
		return ExecutionResult{}, fmt.Errorf(sshSessionTemplateConstant, sessionError)
	}
	defer session.Close()

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	session.Stdout = &standardOutput
	session.Stderr = &standardError
	if len(command.Details.StandardInput) > 0 {
		session.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	completion := make(chan error, 1)
	go func() {
		completion <- session.Run(command.CommandLine())
	}()

	var runError error
	select {
	case <-executionContext.Done():
		_ = client.Close()
		<-completion
		return ExecutionResult{}, executionContext.Err()
	case runError = <-completion:
	}

	result := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *ssh.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitStatus()
		return result, nil
	}
	var exitMissingError *ssh.ExitMissingError
	if errors.As(runError, &exitMissingError) {
		result.ExitCode = sshExitStatusMissingExitCodeConstant
		return result, nil
	}
	return ExecutionResult{}, fmt.Errorf(sshRunTemplateConstant, runError)
}
