package gerrit_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/temirov/reviewsync/internal/execshell"
	"github.com/temirov/reviewsync/internal/gerrit"
)

type recordingGerritExecutor struct {
	result   execshell.ExecutionResult
	failure  error
	recorded []execshell.CommandDetails
}

func (executor *recordingGerritExecutor) ExecuteGerrit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	return executor.result, executor.failure
}

type recordingCommandRunner struct {
	result   execshell.ExecutionResult
	recorded []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recorded = append(runner.recorded, command)
	return runner.result, nil
}

func validSSHConfiguration() gerrit.Configuration {
	configuration := validRestConfiguration()
	configuration.Scheme = "ssh"
	configuration.Username = "ci-bot"
	configuration.SSHKeyPath = "/keys/id_ed25519"
	return configuration
}

func TestSSHTransportCommands(testInstance *testing.T) {
	executor := &recordingGerritExecutor{result: execshell.ExecutionResult{StandardOutput: testQueryStreamConstant}}
	transport, creationError := gerrit.NewSSHTransport(validSSHConfiguration(), executor)
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, gerrit.ResponseFormatQueryStream, transport.ResponseFormat())

	listing, listError := transport.FetchChangedFiles(context.Background())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, testQueryStreamConstant, string(listing))

	payload := []byte(`{"message":"Looks good to me.","labels":{"Code-Review":1}}`)
	_, submitError := transport.SubmitReview(context.Background(), payload)
	require.NoError(testInstance, submitError)

	require.Len(testInstance, executor.recorded, 2)
	require.Equal(testInstance,
		[]string{"query", "--format=JSON", "--files", "--current-patch-set", "change:4242", "limit:1"},
		executor.recorded[0].Arguments)
	require.Empty(testInstance, executor.recorded[0].StandardInput)
	require.Equal(testInstance,
		[]string{"review", "--project", "platform/core", "--json", "4242,7c1f2e9"},
		executor.recorded[1].Arguments)
	require.Equal(testInstance, payload, executor.recorded[1].StandardInput)
}

func TestSSHTransportFailures(testInstance *testing.T) {
	_, creationError := gerrit.NewSSHTransport(validSSHConfiguration(), nil)
	require.ErrorIs(testInstance, creationError, gerrit.ErrGerritExecutorNotConfigured)

	remoteFailure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGerrit},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "fatal: change not found"},
	}
	executor := &recordingGerritExecutor{failure: remoteFailure}
	transport, transportError := gerrit.NewSSHTransport(validSSHConfiguration(), executor)
	require.NoError(testInstance, transportError)

	_, listError := transport.FetchChangedFiles(context.Background())
	var wrapped gerrit.TransportError
	require.ErrorAs(testInstance, listError, &wrapped)
	require.Equal(testInstance, gerrit.OperationListFiles, wrapped.Operation)
	require.Contains(testInstance, listError.Error(), "change not found")

	var commandFailure execshell.CommandFailedError
	require.True(testInstance, errors.As(listError, &commandFailure))
}

func writeTestPrivateKey(testInstance *testing.T) string {
	testInstance.Helper()
	_, privateKey, generationError := ed25519.GenerateKey(rand.Reader)
	require.NoError(testInstance, generationError)
	block, marshalError := ssh.MarshalPrivateKey(privateKey, "")
	require.NoError(testInstance, marshalError)
	keyPath := filepath.Join(testInstance.TempDir(), "id_ed25519")
	require.NoError(testInstance, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))
	return keyPath
}

func TestTransportFactorySelectsByScheme(testInstance *testing.T) {
	keyPath := writeTestPrivateKey(testInstance)

	testCases := []struct {
		name            string
		configuration   func() gerrit.Configuration
		expectRest      bool
		expectSSH       bool
		expectedSetting string
	}{
		{name: "https", configuration: validRestConfiguration, expectRest: true},
		{
			name: "http_upper_case",
			configuration: func() gerrit.Configuration {
				configuration := validRestConfiguration()
				configuration.Scheme = "HTTP"
				return configuration
			},
			expectRest: true,
		},
		{
			name: "ssh",
			configuration: func() gerrit.Configuration {
				configuration := validSSHConfiguration()
				configuration.SSHKeyPath = keyPath
				configuration.StrictHostKeyChecking = false
				return configuration
			},
			expectSSH: true,
		},
		{
			name: "ssh_missing_known_hosts",
			configuration: func() gerrit.Configuration {
				configuration := validSSHConfiguration()
				configuration.SSHKeyPath = keyPath
				configuration.SSHKnownHostsPath = filepath.Join(filepath.Dir(keyPath), "absent")
				return configuration
			},
			expectedSetting: "ssh_known_hosts_path",
		},
		{
			name: "ssh_unreadable_key",
			configuration: func() gerrit.Configuration {
				configuration := validSSHConfiguration()
				configuration.SSHKeyPath = filepath.Join(filepath.Dir(keyPath), "absent_key")
				configuration.StrictHostKeyChecking = false
				return configuration
			},
			expectedSetting: "ssh_key_path",
		},
		{
			name: "unknown_scheme",
			configuration: func() gerrit.Configuration {
				configuration := validRestConfiguration()
				configuration.Scheme = "git"
				return configuration
			},
			expectedSetting: "scheme",
		},
		{
			name: "missing_revision",
			configuration: func() gerrit.Configuration {
				configuration := validRestConfiguration()
				configuration.Revision = ""
				return configuration
			},
			expectedSetting: "revision",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			transport, buildError := gerrit.NewTransport(testCase.configuration(), zap.NewNop())
			if len(testCase.expectedSetting) > 0 {
				var configurationError gerrit.ConfigurationError
				require.ErrorAs(testInstance, buildError, &configurationError)
				require.Equal(testInstance, testCase.expectedSetting, configurationError.Setting)
				require.Nil(testInstance, transport)
				return
			}
			require.NoError(testInstance, buildError)
			_, isRest := transport.(*gerrit.RestTransport)
			_, isSSH := transport.(*gerrit.SSHTransport)
			require.Equal(testInstance, testCase.expectRest, isRest)
			require.Equal(testInstance, testCase.expectSSH, isSSH)
		})
	}
}

func TestTransportFactoryPassesSSHSettings(testInstance *testing.T) {
	var capturedSettings execshell.SSHConnectionSettings
	runner := &recordingCommandRunner{result: execshell.ExecutionResult{StandardOutput: testQueryStreamConstant}}
	factory := gerrit.NewTransportFactoryWithRunner(zap.NewNop(), func(settings execshell.SSHConnectionSettings) (execshell.CommandRunner, error) {
		capturedSettings = settings
		return runner, nil
	})

	configuration := validSSHConfiguration()
	configuration.Host = " review.example.com "
	configuration.SSHKnownHostsPath = "/etc/ssh/known_hosts"
	transport, buildError := factory.Build(configuration)
	require.NoError(testInstance, buildError)

	require.Equal(testInstance, "review.example.com", capturedSettings.Host)
	require.Equal(testInstance, 29418, capturedSettings.Port)
	require.Equal(testInstance, "ci-bot", capturedSettings.User)
	require.Equal(testInstance, "/keys/id_ed25519", capturedSettings.PrivateKeyPath)
	require.Equal(testInstance, "/etc/ssh/known_hosts", capturedSettings.KnownHostsPath)
	require.True(testInstance, capturedSettings.StrictHostKeyChecking)
	require.Empty(testInstance, runner.recorded)

	facade := gerrit.NewReviewFacade(transport, zap.NewNop())
	changedFiles, listError := facade.ListChangedFiles(context.Background())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, 2, changedFiles.Len())
	require.Len(testInstance, runner.recorded, 1)
	require.Equal(testInstance, execshell.CommandGerrit, runner.recorded[0].Name)
}
