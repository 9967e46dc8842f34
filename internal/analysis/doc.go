// Package analysis models the analysis engine's output consumed by the review
// decorator: issues with severities, the quality gate, and the analysis identity.
// Reports are read from YAML or JSON files.
package analysis
