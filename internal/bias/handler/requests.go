package handler

import (
	"strings"

	"biasmeter/internal/bias/models"
	dErrors "biasmeter/pkg/domain-errors"
)

// maxBackendIDLength bounds the backend field before registry lookup.
const maxBackendIDLength = 64

// AnalyzeRequest is the HTTP request body for POST /analyze.
type AnalyzeRequest struct {
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Backend string `json:"backend"`

	parsedMode models.Mode
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}

	r.Backend = strings.TrimSpace(r.Backend)
	if len(r.Backend) > maxBackendIDLength {
		return dErrors.New(dErrors.CodeValidation, "backend must be at most 64 characters")
	}

	mode, err := models.ParseMode(r.Mode)
	if err != nil {
		return err
	}
	r.parsedMode = mode
	return nil
}

// ParsedMode returns the validated mode.
func (r *AnalyzeRequest) ParsedMode() models.Mode {
	return r.parsedMode
}
