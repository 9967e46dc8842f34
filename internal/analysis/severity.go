package analysis

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity ranks an issue. SeverityUnknown sorts below every real severity and
// is the result of reducing an empty set.
type Severity int

const (
	SeverityUnknown Severity = iota - 1
	SeverityInfo
	SeverityMinor
	SeverityMajor
	SeverityCritical
	SeverityBlocker
)

const (
	severityUnknownNameConstant         = "UNKNOWN"
	severityInfoNameConstant            = "INFO"
	severityMinorNameConstant           = "MINOR"
	severityMajorNameConstant           = "MAJOR"
	severityCriticalNameConstant        = "CRITICAL"
	severityBlockerNameConstant         = "BLOCKER"
	unsupportedSeverityTemplateConstant = "unsupported severity %q"
)

var severityNames = map[Severity]string{
	SeverityUnknown:  severityUnknownNameConstant,
	SeverityInfo:     severityInfoNameConstant,
	SeverityMinor:    severityMinorNameConstant,
	SeverityMajor:    severityMajorNameConstant,
	SeverityCritical: severityCriticalNameConstant,
	SeverityBlocker:  severityBlockerNameConstant,
}

// ParseSeverity converts a case-insensitive severity name.
func ParseSeverity(raw string) (Severity, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for severity, name := range severityNames {
		if severity != SeverityUnknown && name == normalized {
			return severity, nil
		}
	}
	return SeverityUnknown, fmt.Errorf(unsupportedSeverityTemplateConstant, raw)
}

func (severity Severity) String() string {
	if name, known := severityNames[severity]; known {
		return name
	}
	return severityUnknownNameConstant
}

// AtLeast reports whether severity is ranked at or above threshold.
func (severity Severity) AtLeast(threshold Severity) bool {
	return severity >= threshold
}

// MarshalText implements encoding.TextMarshaler.
func (severity Severity) MarshalText() ([]byte, error) {
	return []byte(severity.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (severity *Severity) UnmarshalText(text []byte) error {
	parsed, parseError := ParseSeverity(string(text))
	if parseError != nil {
		return parseError
	}
	*severity = parsed
	return nil
}

// UnmarshalYAML decodes a scalar severity name.
func (severity *Severity) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if decodeError := node.Decode(&raw); decodeError != nil {
		return decodeError
	}
	return severity.UnmarshalText([]byte(raw))
}

// MaxSeverity returns the highest severity in the sequence, or SeverityUnknown when empty.
func MaxSeverity(severities []Severity) Severity {
	maximum := SeverityUnknown
	for _, severity := range severities {
		if severity > maximum {
			maximum = severity
		}
	}
	return maximum
}
