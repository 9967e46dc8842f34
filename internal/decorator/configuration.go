package decorator

import (
	"strings"

	"github.com/temirov/reviewsync/internal/analysis"
)

const (
	defaultLabelConstant              = "Code-Review"
	defaultThresholdConstant          = analysis.SeverityInfo
	defaultVoteNoIssueConstant        = 1
	defaultVoteBelowThresholdConstant = 1
	defaultVoteAboveThresholdConstant = -1
	defaultIssueCommentConstant       = "[${issue.isNew}] New: ${issue.ruleKey} Severity: ${issue.severity}, Message: ${issue.message}"
)

const (
	configurationLabelKeyConstant              = "label"
	configurationMessageKeyConstant            = "message"
	configurationIssueCommentKeyConstant       = "issue_comment"
	configurationThresholdKeyConstant          = "threshold"
	configurationVoteNoIssueKeyConstant        = "vote_no_issue"
	configurationVoteBelowThresholdKeyConstant = "vote_below_threshold"
	configurationVoteAboveThresholdKeyConstant = "vote_above_threshold"
	configurationNewIssuesOnlyKeyConstant      = "new_issues_only"
	configurationServerURLKeyConstant          = "server_url"
	configurationKeySeparatorConstant          = "."
)

// Configuration is the review policy: which label to vote on, the vote values,
// the severity threshold, and the message templates.
type Configuration struct {
	Label              string            `mapstructure:"label"`
	Message            string            `mapstructure:"message"`
	IssueComment       string            `mapstructure:"issue_comment"`
	Threshold          analysis.Severity `mapstructure:"threshold"`
	VoteNoIssue        int               `mapstructure:"vote_no_issue"`
	VoteBelowThreshold int               `mapstructure:"vote_below_threshold"`
	VoteAboveThreshold int               `mapstructure:"vote_above_threshold"`
	NewIssuesOnly      bool              `mapstructure:"new_issues_only"`
	ServerURL          string            `mapstructure:"server_url"`
}

// DefaultConfiguration returns the baseline review policy.
func DefaultConfiguration() Configuration {
	return Configuration{
		Label:              defaultLabelConstant,
		IssueComment:       defaultIssueCommentConstant,
		Threshold:          defaultThresholdConstant,
		VoteNoIssue:        defaultVoteNoIssueConstant,
		VoteBelowThreshold: defaultVoteBelowThresholdConstant,
		VoteAboveThreshold: defaultVoteAboveThresholdConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationLabelKeyConstant:              defaults.Label,
		prefix + configurationMessageKeyConstant:            defaults.Message,
		prefix + configurationIssueCommentKeyConstant:       defaults.IssueComment,
		prefix + configurationThresholdKeyConstant:          defaults.Threshold.String(),
		prefix + configurationVoteNoIssueKeyConstant:        defaults.VoteNoIssue,
		prefix + configurationVoteBelowThresholdKeyConstant: defaults.VoteBelowThreshold,
		prefix + configurationVoteAboveThresholdKeyConstant: defaults.VoteAboveThreshold,
		prefix + configurationNewIssuesOnlyKeyConstant:      defaults.NewIssuesOnly,
		prefix + configurationServerURLKeyConstant:          defaults.ServerURL,
	}
}

// Sanitize trims the label and server URL and restores defaults for a blank
// label, a blank issue template, or an unknown threshold.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Label = strings.TrimSpace(configuration.Label)
	if len(sanitized.Label) == 0 {
		sanitized.Label = defaultLabelConstant
	}
	if len(strings.TrimSpace(configuration.IssueComment)) == 0 {
		sanitized.IssueComment = defaultIssueCommentConstant
	}
	if configuration.Threshold == analysis.SeverityUnknown {
		sanitized.Threshold = defaultThresholdConstant
	}
	sanitized.ServerURL = strings.TrimSpace(configuration.ServerURL)
	return sanitized
}
