package core

// # Error Codes Reference
//
// User-facing messages with codes for support reference. Codes are grouped
// by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum upload size
//	          Action: Split the list into smaller files
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Not a CSV: Only CSV files are supported
//	          Action: Export your sheet as comma-separated values and upload again
//	          Patterns: "unsupported input"
//
//	FILE003 - Header only: File has no product rows
//	          Action: Add at least one row below the header
//	          Patterns: "contains only a header"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Unreadable file: The file could not be read
//	          Action: Check the file and try again
//	          Patterns: "error reading file"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid column: The chosen column does not exist
//	         Action: Pick one of the listed columns
//	         Patterns: "out of range"
//
//	VAL002 - Column fixed: The product column was already chosen
//	         Action: Start over to pick a different column
//	         Patterns: "column already chosen"
//
//	VAL003 - Column missing: Choose the product column first
//	         Action: Select the column holding product names
//	         Patterns: "column not chosen"
//
//	VAL004 - Bad request: The request could not be read
//	         Patterns: "invalid request"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Session not found
//	         Action: Upload the file again
//	         Patterns: "session not found"
//
//	SES002 - Unknown item: Product not found in this session
//	         Action: Refresh the page
//	         Patterns: "item not found"
//
//	SES003 - No selection: No image selected for this product
//	         Action: Pick an image first
//	         Patterns: "no image selected"
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Empty name: Product name is empty
//	         Patterns: "product name cannot be empty"
//
//	GEN002 - No image: The image service returned no image
//	         Action: Try again later
//	         Patterns: "no image data"
//
//	GEN003 - Invalid image: Stored image could not be decoded
//	         Patterns: "invalid image data uri", "decode image"
//
// # Upload / Request Errors (UPL001-UPL099)
//
//	UPL001 - System busy: Too many uploads in progress
//	         Patterns: "too many uploads"
//
//	UPL002 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL003 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit", "resource_exhausted", "quota"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file too large", UserMessage{"File exceeds maximum upload size", "Split the list into smaller files", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds maximum upload size", "Split the list into smaller files", "FILE001"}},
	{"unsupported input: column", UserMessage{"The chosen column does not exist", "Pick one of the listed columns", "VAL001"}},
	{"unsupported input", UserMessage{"Only CSV files are supported", "Export your sheet as comma-separated values and upload again", "FILE002"}},
	{"contains only a header", UserMessage{"CSV file is empty or contains only a header.", "Add at least one row below the header", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"error reading file", UserMessage{"The file could not be read", "Check the file and try again", "FILE005"}},

	// Validation
	{"out of range", UserMessage{"The chosen column does not exist", "Pick one of the listed columns", "VAL001"}},
	{"column already chosen", UserMessage{"The product column was already chosen", "Start over to pick a different column", "VAL002"}},
	{"column not chosen", UserMessage{"Choose the product column first", "Select the column holding product names", "VAL003"}},
	{"invalid request", UserMessage{"The request could not be read", "Reload the page and try again", "VAL004"}},

	// Session
	{"session not found", UserMessage{"Session not found", "The session may have expired. Please upload the file again", "SES001"}},
	{"item not found", UserMessage{"Product not found in this session", "Refresh the page", "SES002"}},
	{"no image selected", UserMessage{"No image selected for this product", "Pick an image first", "SES003"}},

	// Generation
	{"product name cannot be empty", UserMessage{"Product name is empty", "Check the product column", "GEN001"}},
	{"no image data", UserMessage{"The image service returned no image", "Please try again later", "GEN002"}},
	{"invalid image data uri", UserMessage{"Stored image could not be read", "Please regenerate the images", "GEN003"}},
	{"decode image", UserMessage{"Stored image could not be read", "Please regenerate the images", "GEN003"}},

	// Upload / request
	{"too many uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Please try again", "UPL003"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{"resource_exhausted", UserMessage{"Image service quota exhausted", "Please wait a moment before trying again", "RATE001"}},
	{"quota", UserMessage{"Image service quota exhausted", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
