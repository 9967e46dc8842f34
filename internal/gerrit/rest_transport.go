package gerrit

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/icholy/digest"
	"go.uber.org/zap"
)

const (
	restAuthenticatedPrefixConstant = "/a"
	restChangesSegmentConstant      = "/changes/"
	restRevisionsSegmentConstant    = "/revisions/"
	restFilesSuffixConstant         = "/files/"
	restReviewSuffixConstant        = "/review"
	restChangeIDSeparatorConstant   = "~"
	restSchemeSeparatorConstant     = "://"
	restContentTypeHeaderConstant   = "Content-Type"
	restAcceptHeaderConstant        = "Accept"
	restJSONContentTypeConstant     = "application/json; charset=UTF-8"
	restJSONAcceptConstant          = "application/json"
	restLogFieldMethodConstant      = "method"
	restLogFieldURLConstant         = "url"
	restLogFieldStatusConstant      = "status"
	restLogFieldBytesConstant       = "bytes"
	restRequestLogMessageConstant   = "Sending review backend request"
	restResponseLogMessageConstant  = "Received review backend response"
)

// RestTransport talks to the backend's REST API over HTTP(S).
type RestTransport struct {
	httpClient *http.Client
	rootURL    string
	username   string
	password   string
	authScheme HTTPAuthScheme
	logger     *zap.Logger
}

// NewRestTransport builds the revision root URL and an HTTP client honouring
// the configured timeout and authentication scheme. Configuration is expected
// to be sanitized and validated.
func NewRestTransport(configuration Configuration, logger *zap.Logger) (*RestTransport, error) {
	scheme, schemeError := ParseScheme(configuration.Scheme)
	if schemeError != nil {
		return nil, schemeError
	}
	authScheme, authError := ParseHTTPAuthScheme(configuration.HTTPAuthScheme)
	if authError != nil {
		return nil, authError
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{Timeout: configuration.Timeout}
	if authScheme == HTTPAuthSchemeDigest && len(configuration.Username) > 0 {
		httpClient.Transport = &digest.Transport{
			Username: configuration.Username,
			Password: configuration.Password,
		}
	}

	return &RestTransport{
		httpClient: httpClient,
		rootURL:    BuildRevisionRootURL(scheme, configuration),
		username:   configuration.Username,
		password:   configuration.Password,
		authScheme: authScheme,
		logger:     logger,
	}, nil
}

// BuildRevisionRootURL returns
// scheme://host:port{basePath}[/a]/changes/{project~branch~change}/revisions/{revision}.
// The authenticated "/a" prefix is present when a username is configured.
func BuildRevisionRootURL(scheme Scheme, configuration Configuration) string {
	var builder strings.Builder
	builder.WriteString(string(scheme))
	builder.WriteString(restSchemeSeparatorConstant)
	builder.WriteString(net.JoinHostPort(configuration.Host, strconv.Itoa(configuration.ResolvedPort())))
	builder.WriteString(configuration.BasePath)
	if len(configuration.Username) > 0 {
		builder.WriteString(restAuthenticatedPrefixConstant)
	}
	builder.WriteString(restChangesSegmentConstant)
	builder.WriteString(url.PathEscape(configuration.Project))
	builder.WriteString(restChangeIDSeparatorConstant)
	builder.WriteString(url.PathEscape(configuration.Branch))
	builder.WriteString(restChangeIDSeparatorConstant)
	builder.WriteString(url.PathEscape(configuration.Change))
	builder.WriteString(restRevisionsSegmentConstant)
	builder.WriteString(url.PathEscape(configuration.Revision))
	return builder.String()
}

// RootURL returns the revision root the transport targets.
func (transport *RestTransport) RootURL() string {
	return transport.rootURL
}

// ResponseFormat reports the REST files listing format.
func (transport *RestTransport) ResponseFormat() ResponseFormat {
	return ResponseFormatRESTFiles
}

// FetchChangedFiles issues GET {root}/files/ and returns the raw body.
func (transport *RestTransport) FetchChangedFiles(executionContext context.Context) ([]byte, error) {
	return transport.execute(executionContext, OperationListFiles, http.MethodGet, transport.rootURL+restFilesSuffixConstant, nil)
}

// SubmitReview issues POST {root}/review with the JSON payload.
func (transport *RestTransport) SubmitReview(executionContext context.Context, payload []byte) ([]byte, error) {
	return transport.execute(executionContext, OperationSubmitReview, http.MethodPost, transport.rootURL+restReviewSuffixConstant, payload)
}

func (transport *RestTransport) execute(executionContext context.Context, operation Operation, method string, endpoint string, payload []byte) ([]byte, error) {
	var requestBody io.Reader
	if payload != nil {
		requestBody = bytes.NewReader(payload)
	}
	request, requestError := http.NewRequestWithContext(executionContext, method, endpoint, requestBody)
	if requestError != nil {
		return nil, TransportError{Operation: operation, Cause: requestError}
	}
	request.Header.Set(restAcceptHeaderConstant, restJSONAcceptConstant)
	if payload != nil {
		request.Header.Set(restContentTypeHeaderConstant, restJSONContentTypeConstant)
	}
	if transport.authScheme == HTTPAuthSchemeBasic && len(transport.username) > 0 {
		request.SetBasicAuth(transport.username, transport.password)
	}

	transport.logger.Debug(restRequestLogMessageConstant,
		zap.String(restLogFieldMethodConstant, method),
		zap.String(restLogFieldURLConstant, endpoint),
	)

	response, responseError := transport.httpClient.Do(request)
	if responseError != nil {
		return nil, TransportError{Operation: operation, Cause: responseError}
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return nil, TransportError{Operation: operation, Cause: readError}
	}

	transport.logger.Debug(restResponseLogMessageConstant,
		zap.String(restLogFieldURLConstant, endpoint),
		zap.Int(restLogFieldStatusConstant, response.StatusCode),
		zap.Int(restLogFieldBytesConstant, len(responseBody)),
	)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, TransportError{
			Operation: operation,
			Cause:     newUnexpectedStatusError(response.StatusCode, strings.TrimSpace(string(responseBody))),
		}
	}
	return responseBody, nil
}

var _ Transport = (*RestTransport)(nil)
