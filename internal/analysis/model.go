package analysis

import "strings"

// QualityGateStatus is the overall verdict of a quality gate.
type QualityGateStatus string

const (
	QualityGateStatusOK    QualityGateStatus = "OK"
	QualityGateStatusError QualityGateStatus = "ERROR"
)

const (
	issueStatusClosedConstant   = "CLOSED"
	issueStatusResolvedConstant = "RESOLVED"
)

// Issue is a single finding reported by the analysis engine.
type Issue struct {
	Key      string
	RuleKey  string
	FilePath string
	Line     int
	Severity Severity
	IsNew    bool
	Type     string
	Message  string
	Status   string
}

// IsOpen reports whether the issue still needs attention. Closed and resolved
// issues are excluded from reviews.
func (issue Issue) IsOpen() bool {
	switch strings.ToUpper(strings.TrimSpace(issue.Status)) {
	case issueStatusClosedConstant, issueStatusResolvedConstant:
		return false
	default:
		return true
	}
}

// QualityGateCondition is one metric evaluated by the quality gate.
type QualityGateCondition struct {
	Metric    string
	Status    QualityGateStatus
	Actual    string
	Threshold string
}

// QualityGate is the evaluated gate for an analysis.
type QualityGate struct {
	Status     QualityGateStatus
	Conditions []QualityGateCondition
}

// Passed reports whether the gate status is OK.
func (gate QualityGate) Passed() bool {
	return gate.Status == QualityGateStatusOK
}

// AnalysisResult identifies the analysis that produced the issues.
type AnalysisResult struct {
	ProjectKey   string
	Revision     string
	AnalysisDate string
}

// AnalyzedFile groups the issues raised against one local path, in report order.
type AnalyzedFile struct {
	Path   string
	Issues []Issue
}

// ProjectAnalysis is everything the decorator consumes from the analysis engine.
// Analysis and QualityGate are nil when the engine did not provide them.
type ProjectAnalysis struct {
	Analysis    *AnalysisResult
	QualityGate *QualityGate
	Files       []AnalyzedFile
}

// IssueCount returns the number of issues across all files.
func (projectAnalysis ProjectAnalysis) IssueCount() int {
	count := 0
	for _, analyzedFile := range projectAnalysis.Files {
		count += len(analyzedFile.Issues)
	}
	return count
}
