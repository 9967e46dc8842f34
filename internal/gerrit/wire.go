package gerrit

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	invalidCommentLineTemplateConstant = "comment on %s has line %d, lines start at 1"
)

type reviewPayload struct {
	Message  string                      `json:"message"`
	Labels   map[string]int              `json:"labels,omitempty"`
	Comments map[string][]commentPayload `json:"comments,omitempty"`
}

type commentPayload struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type reviewResult struct {
	Labels map[string]int `json:"labels"`
}

// EncodeReview renders the document as the backend's review input JSON. Labels
// and comments are omitted when empty; severities are not emitted.
func EncodeReview(document *ReviewDocument) ([]byte, error) {
	payload := reviewPayload{
		Message: document.Message(),
		Labels:  document.Labels(),
	}
	if document.CommentCount() > 0 {
		payload.Comments = make(map[string][]commentPayload, len(document.fileOrder))
	}
	for _, path := range document.fileOrder {
		for _, comment := range document.comments[path] {
			if comment.Line < 1 {
				return nil, SerializationError{Operation: OperationSubmitReview, Cause: fmt.Errorf(invalidCommentLineTemplateConstant, path, comment.Line)}
			}
			payload.Comments[path] = append(payload.Comments[path], commentPayload{Line: comment.Line, Message: comment.Message})
		}
	}

	encoded, encodeError := json.Marshal(payload)
	if encodeError != nil {
		return nil, SerializationError{Operation: OperationSubmitReview, Cause: encodeError}
	}
	return encoded, nil
}

// decodeReviewResult reads the labels the backend applied. Empty responses are
// valid and SSH review output is not inspected.
func decodeReviewResult(format ResponseFormat, body []byte) (map[string]int, error) {
	if format == ResponseFormatQueryStream {
		return nil, nil
	}
	trimmed := stripResponseGuard(body)
	if len(strings.TrimSpace(string(trimmed))) == 0 {
		return nil, nil
	}
	var result reviewResult
	if decodeError := json.Unmarshal(trimmed, &result); decodeError != nil {
		return nil, SerializationError{Operation: OperationSubmitReview, Cause: decodeError}
	}
	return result.Labels, nil
}
