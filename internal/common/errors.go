package common

import "errors"

// Domain error taxonomy. Services wrap these with context via fmt.Errorf("%w");
// the HTTP layer maps them to status codes with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrGateway           = errors.New("llm gateway error")
	ErrUnsupportedAction = errors.New("unsupported action type")
)
