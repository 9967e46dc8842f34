package decorator

import (
	"errors"
	"fmt"
)

const (
	partialDataErrorTemplateConstant            = "analysis is incomplete: missing %s"
	backendProviderNotConfiguredMessageConstant = "review backend provider not configured"
)

// Values of PartialDataError.Missing.
const (
	MissingAnalysisResult = "analysis result"
	MissingRevision       = "revision"
	MissingQualityGate    = "quality gate"
)

// ErrBackendProviderNotConfigured indicates a decorator was built without a way to reach the backend.
var ErrBackendProviderNotConfigured = errors.New(backendProviderNotConfiguredMessageConstant)

// PartialDataError reports that the analysis lacks something a review needs.
// The run is skipped rather than failed.
type PartialDataError struct {
	Missing string
}

func (partialDataError PartialDataError) Error() string {
	return fmt.Sprintf(partialDataErrorTemplateConstant, partialDataError.Missing)
}
