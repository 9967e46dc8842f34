package gerrit

import (
	"strings"

	"github.com/temirov/reviewsync/internal/analysis"
)

// DefaultReviewMessage is used when no message was set on the document.
const DefaultReviewMessage = "Looks good to me."

// LineComment is a comment anchored to one line of a changed file. Severity is
// kept for vote computation and is never sent to the backend.
type LineComment struct {
	Line     int
	Message  string
	Severity analysis.Severity
}

// ReviewDocument accumulates the message, labels, and inline comments submitted
// in one review. File keys are remembered in first-insertion order.
type ReviewDocument struct {
	message   string
	labels    map[string]int
	comments  map[string][]LineComment
	fileOrder []string
}

// NewReviewDocument returns an empty document.
func NewReviewDocument() *ReviewDocument {
	return &ReviewDocument{
		labels:   make(map[string]int),
		comments: make(map[string][]LineComment),
	}
}

// SetMessage sets the review summary.
func (document *ReviewDocument) SetMessage(message string) {
	document.message = message
}

// Message returns the review summary, falling back to DefaultReviewMessage.
func (document *ReviewDocument) Message() string {
	if len(strings.TrimSpace(document.message)) == 0 {
		return DefaultReviewMessage
	}
	return document.message
}

// SetLabel sets or replaces a label vote.
func (document *ReviewDocument) SetLabel(name string, value int) {
	document.labels[name] = value
}

// Labels returns a copy of the label votes.
func (document *ReviewDocument) Labels() map[string]int {
	labels := make(map[string]int, len(document.labels))
	for name, value := range document.labels {
		labels[name] = value
	}
	return labels
}

// AddComments appends comments for path. Empty input is ignored so that every
// stored key maps to at least one comment.
func (document *ReviewDocument) AddComments(path string, comments []LineComment) {
	if len(comments) == 0 {
		return
	}
	if _, known := document.comments[path]; !known {
		document.fileOrder = append(document.fileOrder, path)
	}
	document.comments[path] = append(document.comments[path], comments...)
}

// Comments returns a copy of the comments recorded for path.
func (document *ReviewDocument) Comments(path string) []LineComment {
	return append([]LineComment(nil), document.comments[path]...)
}

// Files returns the commented paths in first-insertion order.
func (document *ReviewDocument) Files() []string {
	return append([]string(nil), document.fileOrder...)
}

// CommentCount returns the total number of comments across all files.
func (document *ReviewDocument) CommentCount() int {
	count := 0
	for _, comments := range document.comments {
		count += len(comments)
	}
	return count
}

// Severities returns the severity of every comment, file by file.
func (document *ReviewDocument) Severities() []analysis.Severity {
	severities := make([]analysis.Severity, 0, document.CommentCount())
	for _, path := range document.fileOrder {
		for _, comment := range document.comments[path] {
			severities = append(severities, comment.Severity)
		}
	}
	return severities
}
