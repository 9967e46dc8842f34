package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationCommandTimeout                = 2 * time.Minute
	integrationGuardPrefixConstant           = ")]}'\n"
	integrationFilesSuffixConstant           = "/files/"
	integrationReviewSuffixConstant          = "/review"
	integrationListingConstant               = `{"/COMMIT_MSG":{},"src/main/handler.go":{},"src/main/legacy.go":{"status":"D"}}`
	integrationReviewResponseConstant        = `{"labels":{"Code-Review":-1}}`
	integrationConfigurationFileNameConstant = "config.yaml"
	integrationReportFileNameConstant        = "report.yaml"
	integrationConfigurationTemplateConstant = `common:
  log_level: %s
gerrit:
  scheme: http
  host: %s
  port: %d
  project: platform/core
  change: "4242"
  revision: 7c1f2e9
  timeout: 10s
review:
  threshold: MAJOR
`
	integrationReportConstant = `analysis:
  project: platform-core
  revision: 7c1f2e9
quality_gate:
  status: ERROR
issues:
  - key: AX-1
    rule: go:S1192
    file: module/src/main/handler.go
    line: 12
    severity: CRITICAL
    new: true
    message: Duplicated literal
  - key: AX-2
    rule: go:S1135
    file: module/src/main/untouched.go
    line: 3
    severity: INFO
    new: true
    message: Complete the task
`
)

// reviewServer imitates the REST review endpoints of a single revision.
type reviewServer struct {
	server   *httptest.Server
	mutex    sync.Mutex
	requests []string
	reviews  []map[string]any
}

func newReviewServer(testInstance *testing.T) *reviewServer {
	testInstance.Helper()
	fake := &reviewServer{}
	fake.server = httptest.NewServer(http.HandlerFunc(fake.handle))
	testInstance.Cleanup(fake.server.Close)
	return fake
}

func (fake *reviewServer) handle(responseWriter http.ResponseWriter, request *http.Request) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.requests = append(fake.requests, request.Method+" "+request.URL.EscapedPath())

	switch {
	case request.Method == http.MethodGet && strings.HasSuffix(request.URL.Path, integrationFilesSuffixConstant):
		_, _ = io.WriteString(responseWriter, integrationGuardPrefixConstant+integrationListingConstant)
	case request.Method == http.MethodPost && strings.HasSuffix(request.URL.Path, integrationReviewSuffixConstant):
		var review map[string]any
		if decodeError := json.NewDecoder(request.Body).Decode(&review); decodeError != nil {
			http.Error(responseWriter, decodeError.Error(), http.StatusBadRequest)
			return
		}
		fake.reviews = append(fake.reviews, review)
		_, _ = io.WriteString(responseWriter, integrationGuardPrefixConstant+integrationReviewResponseConstant)
	default:
		http.NotFound(responseWriter, request)
	}
}

func (fake *reviewServer) hostAndPort(testInstance *testing.T) (string, int) {
	testInstance.Helper()
	host, portText, splitError := net.SplitHostPort(fake.server.Listener.Addr().String())
	require.NoError(testInstance, splitError)
	port, parseError := strconv.Atoi(portText)
	require.NoError(testInstance, parseError)
	return host, port
}

func (fake *reviewServer) recordedRequests() []string {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]string(nil), fake.requests...)
}

func (fake *reviewServer) recordedReviews() []map[string]any {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]map[string]any(nil), fake.reviews...)
}

// writeIntegrationFixtures stores a configuration pointing at the fake server and the analysis report.
func writeIntegrationFixtures(testInstance *testing.T, fake *reviewServer, logLevel string) (string, string) {
	testInstance.Helper()
	directory := testInstance.TempDir()
	host, port := fake.hostAndPort(testInstance)

	configurationPath := filepath.Join(directory, integrationConfigurationFileNameConstant)
	configurationContent := fmt.Sprintf(integrationConfigurationTemplateConstant, logLevel, host, port)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))

	reportPath := filepath.Join(directory, integrationReportFileNameConstant)
	require.NoError(testInstance, os.WriteFile(reportPath, []byte(integrationReportConstant), 0o600))

	return configurationPath, reportPath
}

func repositoryRoot(testInstance *testing.T) string {
	testInstance.Helper()
	currentWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(currentWorkingDirectory)
}

func runIntegrationCommand(testInstance *testing.T, extraEnvironment []string, arguments []string) string {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancel()

	command := exec.CommandContext(executionContext, "go", append([]string{"run", "."}, arguments...)...)
	command.Dir = repositoryRoot(testInstance)
	command.Env = append(append([]string{}, os.Environ()...), extraEnvironment...)

	outputBytes, runError := command.CombinedOutput()
	outputText := string(outputBytes)
	requireNoError(testInstance, runError, outputText)
	return outputText
}

func filterStructuredOutput(rawOutput string) string {
	lines := strings.Split(rawOutput, "\n")
	var filtered []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		filtered = append(filtered, line)
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, "\n") + "\n"
}

func requireNoError(testInstance *testing.T, err error, output string) {
	testInstance.Helper()
	if err != nil {
		testInstance.Fatalf("command failed: %v\n%s", err, output)
	}
}
