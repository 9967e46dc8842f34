package decorator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/reviewsync/internal/analysis"
	"github.com/temirov/reviewsync/internal/gerrit"
)

const (
	minimumCommentLineConstant            = 1
	logMessageTransitionConstant          = "Decoration state changed"
	logMessageSkippedConstant             = "Skipping review, analysis is incomplete"
	logMessageBackendUnavailableConstant  = "Unable to reach review backend"
	logMessageListingFailedConstant       = "Unable to list changed files"
	logMessageFileMatchedConstant         = "Matched analyzed file to changed file"
	logMessageFileUnmatchedConstant       = "Analyzed file is not part of the revision"
	logMessageIssueSkippedConstant        = "Issue is not new, not commenting"
	logMessageSubmissionFailedConstant    = "Unable to submit review"
	logMessageReviewSubmittedConstant     = "Review submitted"
	logFieldStateConstant                 = "state"
	logFieldMissingConstant               = "missing"
	logFieldLocalPathConstant             = "local_path"
	logFieldRemotePathConstant            = "remote_path"
	logFieldMatchKindConstant             = "match"
	logFieldIssueKeyConstant              = "issue_key"
	logFieldLabelConstant                 = "label"
	logFieldVoteConstant                  = "vote"
	logFieldCommentsConstant              = "comments"
	logFieldFilesConstant                 = "files"
	logFieldRevisionConstant              = "revision"
	logFieldProjectConstant               = "project"
	logFieldQualityGateStatusConstant     = "quality_gate"
	logFieldAnalyzedFilesConstant         = "analyzed_files"
	logFieldMaximumSeverityConstant       = "max_severity"
	logFieldConfigurationFailureConstant  = "setting"
	logFieldIssueStatusConstant           = "issue_status"
	logMessageIssueClosedConstant         = "Issue is closed, not commenting"
	logMessageFileLevelIssueClampConstant = "Issue has no line, commenting on the first line"
)

// ReviewBackend is what a decoration run needs from the review backend.
// gerrit.ReviewFacade satisfies it.
type ReviewBackend interface {
	ListChangedFiles(executionContext context.Context) (gerrit.ChangedFiles, error)
	NormalizePath(path string) string
	SubmitReview(executionContext context.Context, document *gerrit.ReviewDocument) error
}

// BackendProvider builds the backend for one run. It is not called for runs
// skipped on incomplete analysis.
type BackendProvider func() (ReviewBackend, error)

// Outcome summarizes a decoration run.
type Outcome struct {
	State       State
	Transitions []State
	Files       int
	Comments    int
	Label       string
	Vote        int
	Cause       error
}

// Decorator publishes an analysis as a review. Each call to Decorate is an
// independent run with its own review document and backend.
type Decorator struct {
	configuration   Configuration
	backendProvider BackendProvider
	logger          *zap.Logger
}

// NewDecorator validates dependencies and returns a decorator. A nil logger disables logging.
func NewDecorator(configuration Configuration, backendProvider BackendProvider, logger *zap.Logger) (*Decorator, error) {
	if backendProvider == nil {
		return nil, ErrBackendProviderNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decorator{configuration: configuration.Sanitize(), backendProvider: backendProvider, logger: logger}, nil
}

type run struct {
	logger  *zap.Logger
	outcome Outcome
}

func (decorationRun *run) transition(state State) {
	decorationRun.outcome.State = state
	decorationRun.outcome.Transitions = append(decorationRun.outcome.Transitions, state)
	decorationRun.logger.Debug(logMessageTransitionConstant, zap.String(logFieldStateConstant, string(state)))
}

func (decorationRun *run) abort(cause error) Outcome {
	decorationRun.outcome.Cause = cause
	decorationRun.transition(StateAborted)
	return decorationRun.outcome
}

// Decorate runs the full sequence for one analysis. Failures never escape: an
// incomplete analysis is logged as a warning, anything else as an error, and
// both end the run in StateAborted with the cause recorded on the outcome.
func (decorator *Decorator) Decorate(executionContext context.Context, projectAnalysis analysis.ProjectAnalysis) Outcome {
	decorationRun := &run{logger: decorator.logger}
	decorationRun.transition(StateInit)

	decorationRun.transition(StateAwaitAnalysisResult)
	if partialDataError := checkAnalysis(projectAnalysis); partialDataError != nil {
		decorator.logger.Warn(logMessageSkippedConstant, zap.String(logFieldMissingConstant, partialDataError.Missing))
		return decorationRun.abort(*partialDataError)
	}
	runLogger := decorator.logger.With(
		zap.String(logFieldProjectConstant, projectAnalysis.Analysis.ProjectKey),
		zap.String(logFieldRevisionConstant, projectAnalysis.Analysis.Revision),
	)
	decorationRun.logger = runLogger

	decorationRun.transition(StateFetchRemoteFiles)
	backend, backendError := decorator.backendProvider()
	if backendError != nil {
		runLogger.Error(logMessageBackendUnavailableConstant, backendErrorFields(backendError)...)
		return decorationRun.abort(backendError)
	}
	changedFiles, listError := backend.ListChangedFiles(executionContext)
	if listError != nil {
		runLogger.Error(logMessageListingFailedConstant, zap.Error(listError))
		return decorationRun.abort(listError)
	}

	decorationRun.transition(StateMatchAndCollect)
	document := decorator.collect(runLogger, projectAnalysis, changedFiles, backend.NormalizePath)
	vote := ComputeVote(document.Severities(), decorator.configuration)
	document.SetLabel(decorator.configuration.Label, vote)
	decorationRun.outcome.Files = len(document.Files())
	decorationRun.outcome.Comments = document.CommentCount()
	decorationRun.outcome.Label = decorator.configuration.Label
	decorationRun.outcome.Vote = vote

	decorationRun.transition(StateSubmit)
	if submitError := backend.SubmitReview(executionContext, document); submitError != nil {
		runLogger.Error(logMessageSubmissionFailedConstant, zap.Error(submitError))
		return decorationRun.abort(submitError)
	}

	runLogger.Info(logMessageReviewSubmittedConstant,
		zap.String(logFieldQualityGateStatusConstant, string(projectAnalysis.QualityGate.Status)),
		zap.Int(logFieldAnalyzedFilesConstant, len(projectAnalysis.Files)),
		zap.Int(logFieldFilesConstant, decorationRun.outcome.Files),
		zap.Int(logFieldCommentsConstant, decorationRun.outcome.Comments),
		zap.String(logFieldMaximumSeverityConstant, analysis.MaxSeverity(document.Severities()).String()),
		zap.String(logFieldLabelConstant, decorationRun.outcome.Label),
		zap.Int(logFieldVoteConstant, vote),
	)
	decorationRun.transition(StateDone)
	return decorationRun.outcome
}

func (decorator *Decorator) collect(logger *zap.Logger, projectAnalysis analysis.ProjectAnalysis, changedFiles gerrit.ChangedFiles, normalize PathNormalizer) *gerrit.ReviewDocument {
	document := gerrit.NewReviewDocument()
	for _, analyzedFile := range projectAnalysis.Files {
		remotePath, matchKind := MatchPath(analyzedFile.Path, changedFiles, normalize)
		if matchKind == MatchKindNone {
			logger.Debug(logMessageFileUnmatchedConstant, zap.String(logFieldLocalPathConstant, analyzedFile.Path))
			continue
		}
		logger.Debug(logMessageFileMatchedConstant,
			zap.String(logFieldLocalPathConstant, analyzedFile.Path),
			zap.String(logFieldRemotePathConstant, remotePath),
			zap.String(logFieldMatchKindConstant, string(matchKind)),
		)
		document.AddComments(remotePath, convertIssues(logger, analyzedFile.Issues, decorator.configuration))
	}

	if len(strings.TrimSpace(decorator.configuration.Message)) > 0 {
		document.SetMessage(RenderReviewMessage(decorator.configuration.Message, ReviewSummary{
			Project:           projectAnalysis.Analysis.ProjectKey,
			Revision:          projectAnalysis.Analysis.Revision,
			QualityGateStatus: projectAnalysis.QualityGate.Status,
			IssueCount:        document.CommentCount(),
			ServerURL:         decorator.configuration.ServerURL,
		}))
	}
	return document
}

// ConvertIssues turns the issues of one file into line comments, honoring the
// new-issues-only policy and skipping closed issues. Issues without a line are
// placed on the first line.
func ConvertIssues(issues []analysis.Issue, configuration Configuration) []gerrit.LineComment {
	return convertIssues(zap.NewNop(), issues, configuration.Sanitize())
}

func convertIssues(logger *zap.Logger, issues []analysis.Issue, configuration Configuration) []gerrit.LineComment {
	var comments []gerrit.LineComment
	for _, issue := range issues {
		if !issue.IsOpen() {
			logger.Debug(logMessageIssueClosedConstant,
				zap.String(logFieldIssueKeyConstant, issue.Key),
				zap.String(logFieldIssueStatusConstant, issue.Status),
			)
			continue
		}
		if configuration.NewIssuesOnly && !issue.IsNew {
			logger.Debug(logMessageIssueSkippedConstant, zap.String(logFieldIssueKeyConstant, issue.Key))
			continue
		}
		line := issue.Line
		if line < minimumCommentLineConstant {
			logger.Debug(logMessageFileLevelIssueClampConstant, zap.String(logFieldIssueKeyConstant, issue.Key))
			line = minimumCommentLineConstant
		}
		comments = append(comments, gerrit.LineComment{
			Line:     line,
			Message:  RenderIssueComment(configuration.IssueComment, issue),
			Severity: issue.Severity,
		})
	}
	return comments
}

// ComputeVote applies the vote policy to the severities of the collected comments.
func ComputeVote(severities []analysis.Severity, configuration Configuration) int {
	if len(severities) == 0 {
		return configuration.VoteNoIssue
	}
	if analysis.MaxSeverity(severities).AtLeast(configuration.Threshold) {
		return configuration.VoteAboveThreshold
	}
	return configuration.VoteBelowThreshold
}

func checkAnalysis(projectAnalysis analysis.ProjectAnalysis) *PartialDataError {
	switch {
	case projectAnalysis.Analysis == nil:
		return &PartialDataError{Missing: MissingAnalysisResult}
	case len(strings.TrimSpace(projectAnalysis.Analysis.Revision)) == 0:
		return &PartialDataError{Missing: MissingRevision}
	case projectAnalysis.QualityGate == nil:
		return &PartialDataError{Missing: MissingQualityGate}
	default:
		return nil
	}
}

func backendErrorFields(backendError error) []zap.Field {
	fields := []zap.Field{zap.Error(backendError)}
	var configurationError gerrit.ConfigurationError
	if errors.As(backendError, &configurationError) {
		fields = append(fields, zap.String(logFieldConfigurationFailureConstant, configurationError.Setting))
	}
	return fields
}
