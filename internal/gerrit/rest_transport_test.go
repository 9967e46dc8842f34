package gerrit_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/reviewsync/internal/gerrit"
)

const (
	testRestUsernameConstant          = "ci-bot"
	testRestPasswordConstant          = "s3cret"
	testDigestChallengeHeaderConstant = `Digest realm="gerrit", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", qop="auth", algorithm=MD5`
)

type recordedRequest struct {
	method        string
	escapedPath   string
	authorization string
	contentType   string
	body          string
}

type recordingServer struct {
	mutex    sync.Mutex
	requests []recordedRequest
}

func (server *recordingServer) record(request *http.Request) {
	body, _ := io.ReadAll(request.Body)
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.requests = append(server.requests, recordedRequest{
		method:        request.Method,
		escapedPath:   request.URL.EscapedPath(),
		authorization: request.Header.Get("Authorization"),
		contentType:   request.Header.Get("Content-Type"),
		body:          string(body),
	})
}

func configurationForServer(testInstance *testing.T, serverURL string) gerrit.Configuration {
	testInstance.Helper()
	parsedURL, parseError := url.Parse(serverURL)
	require.NoError(testInstance, parseError)
	host, portText, splitError := net.SplitHostPort(parsedURL.Host)
	require.NoError(testInstance, splitError)
	port, portError := strconv.Atoi(portText)
	require.NoError(testInstance, portError)

	configuration := validRestConfiguration()
	configuration.Scheme = "http"
	configuration.Host = host
	configuration.Port = port
	configuration.Timeout = 5 * time.Second
	return configuration.Sanitize()
}

func TestBuildRevisionRootURL(testInstance *testing.T) {
	configuration := validRestConfiguration()
	configuration.BasePath = "/gerrit"
	configuration.Branch = "release/1.x"

	require.Equal(testInstance,
		"https://review.example.com:443/gerrit/changes/platform%2Fcore~release%2F1.x~4242/revisions/7c1f2e9",
		gerrit.BuildRevisionRootURL(gerrit.SchemeHTTPS, configuration))

	configuration.Username = testRestUsernameConstant
	configuration.Port = 8080
	require.Equal(testInstance,
		"http://review.example.com:8080/gerrit/a/changes/platform%2Fcore~release%2F1.x~4242/revisions/7c1f2e9",
		gerrit.BuildRevisionRootURL(gerrit.SchemeHTTP, configuration))
}

func TestRestTransportBasicAuthentication(testInstance *testing.T) {
	recorder := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		if strings.HasSuffix(request.URL.Path, "/files/") {
			_, _ = io.WriteString(responseWriter, testGuardedListingConstant)
			return
		}
		_, _ = io.WriteString(responseWriter, ")]}'\n{\"labels\":{\"Code-Review\":1}}")
	}))
	defer server.Close()

	configuration := configurationForServer(testInstance, server.URL)
	configuration.Username = testRestUsernameConstant
	configuration.Password = testRestPasswordConstant

	transport, creationError := gerrit.NewRestTransport(configuration, zap.NewNop())
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, gerrit.ResponseFormatRESTFiles, transport.ResponseFormat())

	listing, listError := transport.FetchChangedFiles(context.Background())
	require.NoError(testInstance, listError)
	require.Equal(testInstance, testGuardedListingConstant, string(listing))

	_, submitError := transport.SubmitReview(context.Background(), []byte(`{"message":"ok"}`))
	require.NoError(testInstance, submitError)

	require.Len(testInstance, recorder.requests, 2)
	expectedRoot := "/a/changes/platform%2Fcore~master~4242/revisions/7c1f2e9"

	listRequest := recorder.requests[0]
	require.Equal(testInstance, http.MethodGet, listRequest.method)
	require.Equal(testInstance, expectedRoot+"/files/", listRequest.escapedPath)
	require.True(testInstance, strings.HasPrefix(listRequest.authorization, "Basic "))

	submitRequest := recorder.requests[1]
	require.Equal(testInstance, http.MethodPost, submitRequest.method)
	require.Equal(testInstance, expectedRoot+"/review", submitRequest.escapedPath)
	require.Equal(testInstance, "application/json; charset=UTF-8", submitRequest.contentType)
	require.Equal(testInstance, `{"message":"ok"}`, submitRequest.body)
}

func TestRestTransportAnonymousHasNoAuthenticatedPrefix(testInstance *testing.T) {
	recorder := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		_, _ = io.WriteString(responseWriter, "{}")
	}))
	defer server.Close()

	transport, creationError := gerrit.NewRestTransport(configurationForServer(testInstance, server.URL), nil)
	require.NoError(testInstance, creationError)

	_, listError := transport.FetchChangedFiles(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, recorder.requests, 1)
	require.Equal(testInstance, "/changes/platform%2Fcore~master~4242/revisions/7c1f2e9/files/", recorder.requests[0].escapedPath)
	require.Empty(testInstance, recorder.requests[0].authorization)
}

func TestRestTransportDigestAuthentication(testInstance *testing.T) {
	recorder := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		if !strings.HasPrefix(request.Header.Get("Authorization"), "Digest ") {
			responseWriter.Header().Set("WWW-Authenticate", testDigestChallengeHeaderConstant)
			responseWriter.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(responseWriter, "{}")
	}))
	defer server.Close()

	configuration := configurationForServer(testInstance, server.URL)
	configuration.Username = testRestUsernameConstant
	configuration.Password = testRestPasswordConstant
	configuration.HTTPAuthScheme = "digest"

	transport, creationError := gerrit.NewRestTransport(configuration, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, listError := transport.FetchChangedFiles(context.Background())
	require.NoError(testInstance, listError)

	require.Len(testInstance, recorder.requests, 2)
	require.Empty(testInstance, recorder.requests[0].authorization)
	require.True(testInstance, strings.HasPrefix(recorder.requests[1].authorization, "Digest "))
	require.Contains(testInstance, recorder.requests[1].authorization, `username="ci-bot"`)
}

func TestRestTransportNonSuccessStatus(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(responseWriter, "change is closed\n")
	}))
	defer server.Close()

	transport, creationError := gerrit.NewRestTransport(configurationForServer(testInstance, server.URL), zap.NewNop())
	require.NoError(testInstance, creationError)

	_, submitError := transport.SubmitReview(context.Background(), []byte("{}"))
	var transportError gerrit.TransportError
	require.ErrorAs(testInstance, submitError, &transportError)
	require.Equal(testInstance, gerrit.OperationSubmitReview, transportError.Operation)
	require.ErrorIs(testInstance, submitError, gerrit.ErrUnexpectedStatus)
	require.Contains(testInstance, submitError.Error(), "409")
	require.Contains(testInstance, submitError.Error(), "change is closed")
}

func TestRestTransportConnectionFailure(testInstance *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	configuration := configurationForServer(testInstance, server.URL)
	server.Close()

	transport, creationError := gerrit.NewRestTransport(configuration, zap.NewNop())
	require.NoError(testInstance, creationError)

	_, listError := transport.FetchChangedFiles(context.Background())
	var transportError gerrit.TransportError
	require.ErrorAs(testInstance, listError, &transportError)
	require.Equal(testInstance, gerrit.OperationListFiles, transportError.Operation)
}
