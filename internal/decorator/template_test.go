package decorator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reviewsync/internal/analysis"
	"github.com/temirov/reviewsync/internal/decorator"
)

func TestRenderIssueComment(testInstance *testing.T) {
	issue := analysis.Issue{
		Key:      "AX-1",
		RuleKey:  "go:S1192",
		Line:     12,
		Severity: analysis.SeverityMajor,
		IsNew:    true,
		Type:     "CODE_SMELL",
		Message:  "Define a constant",
	}

	testCases := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "default",
			template: decorator.DefaultConfiguration().IssueComment,
			expected: "[true] New: go:S1192 Severity: MAJOR, Message: Define a constant",
		},
		{
			name:     "all_placeholders",
			template: "${issue.key} ${issue.type} ${issue.line} ${issue.isNew}",
			expected: "AX-1 CODE_SMELL 12 true",
		},
		{
			name:     "unknown_placeholder_kept",
			template: "${issue.author}: ${issue.message}",
			expected: "${issue.author}: Define a constant",
		},
		{name: "plain_text", template: "see report", expected: "see report"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, decorator.RenderIssueComment(testCase.template, issue))
		})
	}
}

func TestRenderReviewMessage(testInstance *testing.T) {
	summary := decorator.ReviewSummary{
		Project:           "platform-core",
		Revision:          "7c1f2e9",
		QualityGateStatus: analysis.QualityGateStatusOK,
		IssueCount:        3,
		ServerURL:         "https://analysis.example.com",
	}

	rendered := decorator.RenderReviewMessage("Analysis of ${project} at ${revision} (${server.url}): gate ${qualitygate.status}, ${issues.count} issue(s)", summary)
	require.Equal(testInstance, "Analysis of platform-core at 7c1f2e9 (https://analysis.example.com): gate OK, 3 issue(s)", rendered)
}
