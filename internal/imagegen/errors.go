package imagegen

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies why a product's images could not be generated.
type FailureKind string

const (
	// FailureGeneric covers every failure that is not quota related.
	FailureGeneric FailureKind = "generic"

	// FailureRateLimited means the service reported quota or resource exhaustion.
	FailureRateLimited FailureKind = "rate_limited"
)

// ErrNoImageData is returned when the service answers without an image part.
var ErrNoImageData = errors.New("image generation failed, no image data received")

// FetchError wraps a failed generation call with its classification.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	if e == nil || e.Err == nil {
		return "image fetch failed"
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer from the image service.
type StatusError struct {
	StatusCode int
	Status     string // API status, e.g. RESOURCE_EXHAUSTED
	Message    string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "image service error"
	}
	msg := fmt.Sprintf("image service returned HTTP %d", e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Classify reports the failure kind of err. Errors that already carry a
// classification keep it; otherwise quota markers in the message decide.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}

	var ferr *FetchError
	if errors.As(err, &ferr) && ferr.Kind != "" {
		return ferr.Kind
	}

	var serr *StatusError
	if errors.As(err, &serr) {
		if serr.StatusCode == 429 || serr.Status == "RESOURCE_EXHAUSTED" {
			return FailureRateLimited
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "quota") {
		return FailureRateLimited
	}
	return FailureGeneric
}

// asFetchError attaches a classification to err unless it already has one.
func asFetchError(err error) *FetchError {
	var ferr *FetchError
	if errors.As(err, &ferr) && ferr.Kind != "" {
		return ferr
	}
	return &FetchError{Kind: Classify(err), Err: err}
}
