package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL   = "INVALID_URL"
	ErrCodeFetch        = "FETCH_FAILED"
	ErrCodeRender       = "RENDER_FAILED"
	ErrCodeInteraction  = "INTERACTION_FAILED"
	ErrCodeSegmentation = "SEGMENTATION_WARNING"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorKind names a class in the pipeline's error taxonomy.
type ErrorKind string

const (
	KindFetch        ErrorKind = "FetchError"
	KindRender       ErrorKind = "RenderError"
	KindInteraction  ErrorKind = "InteractionError"
	KindSegmentation ErrorKind = "SegmentationWarning"
	KindTimeout      ErrorKind = "TimeoutExceeded"
	KindInternal     ErrorKind = "InternalError"
)

// Pipeline phases reported on ErrorItem.
const (
	PhaseFetch       = "fetch"
	PhaseRender      = "render"
	PhaseInteraction = "interaction"
	PhasePagination  = "pagination"
	PhaseSegment     = "segment"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorItem is a non-fatal failure recorded in ScrapeResult.Errors.
type ErrorItem struct {
	Type    ErrorKind `json:"type"`
	Phase   string    `json:"phase"`
	Message string    `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy class of the error code.
func (e *ScrapeError) Kind() ErrorKind {
	return KindForCode(e.Code)
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ToItem converts the error into a non-fatal result entry for the given phase.
func (e *ScrapeError) ToItem(phase string) ErrorItem {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return ErrorItem{Type: e.Kind(), Phase: phase, Message: msg}
}

// KindForCode maps an error code onto the taxonomy.
func KindForCode(code string) ErrorKind {
	switch code {
	case ErrCodeFetch, ErrCodeInvalidURL:
		return KindFetch
	case ErrCodeRender:
		return KindRender
	case ErrCodeInteraction:
		return KindInteraction
	case ErrCodeSegmentation:
		return KindSegmentation
	case ErrCodeTimeout:
		return KindTimeout
	default:
		return KindInternal
	}
}

// AsScrapeError unwraps err into a *ScrapeError, wrapping unknown errors
// with the fallback code.
func AsScrapeError(err error, fallbackCode string) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(fallbackCode, err.Error(), err)
}
