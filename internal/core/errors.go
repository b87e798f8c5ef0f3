package core

import "errors"

// Ingestion and session errors. Their messages carry the patterns MapError
// matches on.
var (
	// ErrParseDegenerate means the file has a header but no data rows.
	ErrParseDegenerate = errors.New("CSV file is empty or contains only a header")

	// ErrUnsupportedInput means the upload is not a CSV or the chosen column is invalid.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrSessionNotFound means the session expired or never existed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrColumnAlreadyChosen means the product column is fixed for the session.
	ErrColumnAlreadyChosen = errors.New("product column already chosen")

	// ErrColumnNotChosen means processing was requested before choosing a column.
	ErrColumnNotChosen = errors.New("product column not chosen")

	// ErrItemNotFound means the item id is unknown to the session.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoSelection means the item has no selected image to download.
	ErrNoSelection = errors.New("no image selected")
)
