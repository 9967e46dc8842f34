package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	reportReadTemplateConstant                 = "unable to read analysis report %s: %w"
	reportDecodeMessageConstant                = "unable to decode analysis report"
	reportIssueWithoutFileTemplateConstant     = "issue %q has no file"
	reportIssueWithoutSeverityTemplateConstant = "issue %q has no severity"
	reportGateStatusTemplateConstant           = "unsupported quality gate status %q"
	reportDecodingErrorFormatConstant          = "%s: %v"
)

// ReportDecodingError reports a malformed analysis report.
type ReportDecodingError struct {
	Cause error
}

func (decodingError ReportDecodingError) Error() string {
	return fmt.Sprintf(reportDecodingErrorFormatConstant, reportDecodeMessageConstant, decodingError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodingError ReportDecodingError) Unwrap() error {
	return decodingError.Cause
}

type reportDocument struct {
	Analysis    *reportAnalysis    `yaml:"analysis"`
	QualityGate *reportQualityGate `yaml:"quality_gate"`
	Issues      []reportIssue      `yaml:"issues"`
}

type reportAnalysis struct {
	Project  string `yaml:"project"`
	Revision string `yaml:"revision"`
	Date     string `yaml:"date"`
}

type reportQualityGate struct {
	Status     string            `yaml:"status"`
	Conditions []reportCondition `yaml:"conditions"`
}

type reportCondition struct {
	Metric    string `yaml:"metric"`
	Status    string `yaml:"status"`
	Actual    string `yaml:"actual"`
	Threshold string `yaml:"threshold"`
}

type reportIssue struct {
	Key      string    `yaml:"key"`
	Rule     string    `yaml:"rule"`
	File     string    `yaml:"file"`
	Line     int       `yaml:"line"`
	Severity *Severity `yaml:"severity"`
	New      bool      `yaml:"new"`
	Type     string    `yaml:"type"`
	Message  string    `yaml:"message"`
	Status   string    `yaml:"status"`
}

// LoadReport decodes a YAML (or JSON) analysis report. Issues are grouped by
// file in order of first appearance.
func LoadReport(reader io.Reader) (ProjectAnalysis, error) {
	var document reportDocument
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if decodeError := decoder.Decode(&document); decodeError != nil && !errors.Is(decodeError, io.EOF) {
		return ProjectAnalysis{}, ReportDecodingError{Cause: decodeError}
	}

	projectAnalysis := ProjectAnalysis{}
	if document.Analysis != nil {
		projectAnalysis.Analysis = &AnalysisResult{
			ProjectKey:   document.Analysis.Project,
			Revision:     strings.TrimSpace(document.Analysis.Revision),
			AnalysisDate: document.Analysis.Date,
		}
	}

	if document.QualityGate != nil {
		gate, gateError := convertQualityGate(*document.QualityGate)
		if gateError != nil {
			return ProjectAnalysis{}, ReportDecodingError{Cause: gateError}
		}
		projectAnalysis.QualityGate = &gate
	}

	fileIndexes := make(map[string]int)
	for _, rawIssue := range document.Issues {
		if len(strings.TrimSpace(rawIssue.File)) == 0 {
			return ProjectAnalysis{}, ReportDecodingError{Cause: fmt.Errorf(reportIssueWithoutFileTemplateConstant, rawIssue.Key)}
		}
		if rawIssue.Severity == nil {
			return ProjectAnalysis{}, ReportDecodingError{Cause: fmt.Errorf(reportIssueWithoutSeverityTemplateConstant, rawIssue.Key)}
		}
		issue := Issue{
			Key:      rawIssue.Key,
			RuleKey:  rawIssue.Rule,
			FilePath: rawIssue.File,
			Line:     rawIssue.Line,
			Severity: *rawIssue.Severity,
			IsNew:    rawIssue.New,
			Type:     rawIssue.Type,
			Message:  rawIssue.Message,
			Status:   rawIssue.Status,
		}
		fileIndex, seen := fileIndexes[issue.FilePath]
		if !seen {
			fileIndex = len(projectAnalysis.Files)
			fileIndexes[issue.FilePath] = fileIndex
			projectAnalysis.Files = append(projectAnalysis.Files, AnalyzedFile{Path: issue.FilePath})
		}
		projectAnalysis.Files[fileIndex].Issues = append(projectAnalysis.Files[fileIndex].Issues, issue)
	}

	return projectAnalysis, nil
}

// LoadReportFile reads and decodes the report stored at path.
func LoadReportFile(path string) (ProjectAnalysis, error) {
	contents, readError := os.ReadFile(path)
	if readError != nil {
		return ProjectAnalysis{}, fmt.Errorf(reportReadTemplateConstant, path, readError)
	}
	return LoadReport(bytes.NewReader(contents))
}

func convertQualityGate(rawGate reportQualityGate) (QualityGate, error) {
	status, statusError := parseQualityGateStatus(rawGate.Status)
	if statusError != nil {
		return QualityGate{}, statusError
	}
	gate := QualityGate{Status: status}
	for _, rawCondition := range rawGate.Conditions {
		conditionStatus, conditionError := parseQualityGateStatus(rawCondition.Status)
		if conditionError != nil {
			return QualityGate{}, conditionError
		}
		gate.Conditions = append(gate.Conditions, QualityGateCondition{
			Metric:    rawCondition.Metric,
			Status:    conditionStatus,
			Actual:    rawCondition.Actual,
			Threshold: rawCondition.Threshold,
		})
	}
	return gate, nil
}

func parseQualityGateStatus(raw string) (QualityGateStatus, error) {
	switch QualityGateStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case QualityGateStatusOK:
		return QualityGateStatusOK, nil
	case QualityGateStatusError:
		return QualityGateStatusError, nil
	default:
		return "", fmt.Errorf(reportGateStatusTemplateConstant, raw)
	}
}
