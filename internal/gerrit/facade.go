package gerrit

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	sourceRootMarkerConstant             = "src/"
	facadeFetchingLogMessageConstant     = "Fetching changed files"
	facadeFetchedLogMessageConstant      = "Fetched changed files"
	facadeSubmittingLogMessageConstant   = "Submitting review"
	facadeSubmittedLogMessageConstant    = "Submitted review"
	facadeLogFieldFilesConstant          = "files"
	facadeLogFieldListedConstant         = "listed"
	facadeLogFieldCommentedFilesConstant = "commented_files"
	facadeLogFieldCommentsConstant       = "comments"
	facadeLogFieldLabelsConstant         = "labels"
	facadeLogFieldAppliedLabelsConstant  = "applied_labels"
)

// ReviewFacade caches the revision's changed files and submits review documents
// through a Transport. It is not safe for concurrent use.
type ReviewFacade struct {
	transport    Transport
	logger       *zap.Logger
	changedFiles *ChangedFiles
}

// NewReviewFacade wraps a transport. A nil logger disables logging.
func NewReviewFacade(transport Transport, logger *zap.Logger) *ReviewFacade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewFacade{transport: transport, logger: logger}
}

// ListChangedFiles returns the reviewable files of the revision. The first call
// fetches and caches; later calls return the cached view without a transport call.
// Deleted files and backend pseudo-files are never listed.
func (facade *ReviewFacade) ListChangedFiles(executionContext context.Context) (ChangedFiles, error) {
	if facade.changedFiles != nil {
		return *facade.changedFiles, nil
	}

	facade.logger.Debug(facadeFetchingLogMessageConstant)
	body, fetchError := facade.transport.FetchChangedFiles(executionContext)
	if fetchError != nil {
		return ChangedFiles{}, DomainError{Stage: DomainStageTransport, Cause: fetchError}
	}

	remoteFiles, decodeError := decodeChangedFiles(facade.transport.ResponseFormat(), body)
	if decodeError != nil {
		return ChangedFiles{}, DomainError{Stage: DomainStageParse, Cause: decodeError}
	}

	changedFiles := NewChangedFiles(remoteFiles)
	facade.changedFiles = &changedFiles
	facade.logger.Debug(facadeFetchedLogMessageConstant,
		zap.Int(facadeLogFieldListedConstant, len(remoteFiles)),
		zap.Int(facadeLogFieldFilesConstant, changedFiles.Len()),
	)
	return changedFiles, nil
}

// Invalidate drops the cached file list so the next listing fetches again.
func (facade *ReviewFacade) Invalidate() {
	facade.changedFiles = nil
}

// NormalizePath drops everything before the first "src/" segment, so
// "module/src/main/Foo.java" becomes "src/main/Foo.java". Paths without the
// marker are returned unchanged.
func (facade *ReviewFacade) NormalizePath(path string) string {
	return NormalizePath(path)
}

// NormalizePath is the stateless form of ReviewFacade.NormalizePath.
func NormalizePath(path string) string {
	markerIndex := strings.Index(path, sourceRootMarkerConstant)
	if markerIndex < 0 {
		return path
	}
	return path[markerIndex:]
}

// SubmitReview encodes the document and sends it through the transport.
func (facade *ReviewFacade) SubmitReview(executionContext context.Context, document *ReviewDocument) error {
	payload, encodeError := EncodeReview(document)
	if encodeError != nil {
		return DomainError{Stage: DomainStageFormat, Cause: encodeError}
	}

	facade.logger.Debug(facadeSubmittingLogMessageConstant,
		zap.Int(facadeLogFieldCommentedFilesConstant, len(document.Files())),
		zap.Int(facadeLogFieldCommentsConstant, document.CommentCount()),
		zap.Any(facadeLogFieldLabelsConstant, document.Labels()),
	)
	response, submitError := facade.transport.SubmitReview(executionContext, payload)
	if submitError != nil {
		return DomainError{Stage: DomainStageTransport, Cause: submitError}
	}

	appliedLabels, parseError := decodeReviewResult(facade.transport.ResponseFormat(), response)
	if parseError != nil {
		return DomainError{Stage: DomainStageParse, Cause: parseError}
	}
	facade.logger.Debug(facadeSubmittedLogMessageConstant, zap.Any(facadeLogFieldAppliedLabelsConstant, appliedLabels))
	return nil
}
