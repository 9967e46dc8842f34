package decorator

import (
	"strconv"
	"strings"

	"github.com/temirov/reviewsync/internal/analysis"
)

const (
	placeholderIssueKeyConstant          = "${issue.key}"
	placeholderIssueRuleKeyConstant      = "${issue.ruleKey}"
	placeholderIssueSeverityConstant     = "${issue.severity}"
	placeholderIssueMessageConstant      = "${issue.message}"
	placeholderIssueIsNewConstant        = "${issue.isNew}"
	placeholderIssueTypeConstant         = "${issue.type}"
	placeholderIssueLineConstant         = "${issue.line}"
	placeholderProjectConstant           = "${project}"
	placeholderRevisionConstant          = "${revision}"
	placeholderQualityGateStatusConstant = "${qualitygate.status}"
	placeholderIssuesCountConstant       = "${issues.count}"
	placeholderServerURLConstant         = "${server.url}"
)

// ReviewSummary carries the values available to the review message template.
type ReviewSummary struct {
	Project           string
	Revision          string
	QualityGateStatus analysis.QualityGateStatus
	IssueCount        int
	ServerURL         string
}

// RenderIssueComment substitutes the issue placeholders in template.
// Unknown placeholders are left as written.
func RenderIssueComment(template string, issue analysis.Issue) string {
	replacer := strings.NewReplacer(
		placeholderIssueKeyConstant, issue.Key,
		placeholderIssueRuleKeyConstant, issue.RuleKey,
		placeholderIssueSeverityConstant, issue.Severity.String(),
		placeholderIssueMessageConstant, issue.Message,
		placeholderIssueIsNewConstant, strconv.FormatBool(issue.IsNew),
		placeholderIssueTypeConstant, issue.Type,
		placeholderIssueLineConstant, strconv.Itoa(issue.Line),
	)
	return replacer.Replace(template)
}

// RenderReviewMessage substitutes the review placeholders in template.
func RenderReviewMessage(template string, summary ReviewSummary) string {
	replacer := strings.NewReplacer(
		placeholderProjectConstant, summary.Project,
		placeholderRevisionConstant, summary.Revision,
		placeholderQualityGateStatusConstant, string(summary.QualityGateStatus),
		placeholderIssuesCountConstant, strconv.Itoa(summary.IssueCount),
		placeholderServerURLConstant, summary.ServerURL,
	)
	return replacer.Replace(template)
}
