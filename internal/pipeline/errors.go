package pipeline

import (
	"errors"
	"net/http"

	"github.com/elavarasan2006/jobrole/internal/artifact"
	"github.com/elavarasan2006/jobrole/internal/features"
	"github.com/elavarasan2006/jobrole/internal/ranking"
)

// ErrInvalidRequest marks input that could not be read as a record at all.
var ErrInvalidRequest = errors.New("invalid request")

// Error codes reported to callers.
const (
	CodeOK                   = "ok"
	CodeArtifactMissing      = "artifact_missing"
	CodeArtifactCorrupt      = "artifact_corrupt"
	CodeInvalidNumericInput  = "invalid_numeric_input"
	CodeFeatureAssemblyError = "feature_assembly_error"
	CodePredictionError      = "prediction_error"
	CodeInvalidRequest       = "invalid_request"
	CodeInternalError        = "internal_error"
)

// Code maps err to its taxonomy code. A nil error is CodeOK.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, features.ErrInvalidNumericInput):
		return CodeInvalidNumericInput
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, features.ErrInvalidRecord):
		return CodeInvalidRequest
	case features.IsAssemblyError(err):
		return CodeFeatureAssemblyError
	case errors.Is(err, ranking.ErrPrediction):
		return CodePredictionError
	case errors.Is(err, artifact.ErrArtifactMissing):
		return CodeArtifactMissing
	case errors.Is(err, artifact.ErrArtifactCorrupt):
		return CodeArtifactCorrupt
	default:
		return CodeInternalError
	}
}

// HTTPStatus returns the response status for a code. Client input problems
// are 400; everything else is a server fault.
func HTTPStatus(code string) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidNumericInput, CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
