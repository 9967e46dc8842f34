package gerrit

import "context"

// ResponseFormat tells the facade how to decode a transport's changed-file listing.
type ResponseFormat int

const (
	// ResponseFormatRESTFiles is a guard-prefixed JSON object keyed by file path.
	ResponseFormatRESTFiles ResponseFormat = iota
	// ResponseFormatQueryStream is newline-delimited JSON produced by the query command.
	ResponseFormatQueryStream
)

// Transport moves raw bytes to and from the review backend. Implementations do not retry.
type Transport interface {
	FetchChangedFiles(executionContext context.Context) ([]byte, error)
	SubmitReview(executionContext context.Context, payload []byte) ([]byte, error)
	ResponseFormat() ResponseFormat
}
