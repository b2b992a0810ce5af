// Package tools provides the Genkit tool registrations for the support
// agent.
//
// All tools share the Result envelope. Business failures (unknown order,
// state conflicts, ineligibility) are reported inside Result.Error so the
// model can read them and respond to the customer; Go errors are reserved
// for infrastructure failures and cancellation.
package tools

// Status values for Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes returned to the model in Result.Error.
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeIneligible   = "ineligible"
	ErrCodeNotReady     = "not_ready"
	ErrCodeValidation   = "validation"
)

// Error is a structured business error for model consumption.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Result is the uniform tool response envelope.
type Result struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *Error         `json:"error,omitempty"`
}

// success builds a successful Result with the given payload.
func success(data map[string]any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

// failure builds an error Result with the given code and message.
func failure(code, message string) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message},
	}
}
