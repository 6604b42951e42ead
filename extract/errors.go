package extract

import "errors"

var (
	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrMalformedResponse indicates the model output was not valid JSON even
	// after the repair pass and all retry attempts.
	ErrMalformedResponse = errors.New("malformed extraction response")
)
