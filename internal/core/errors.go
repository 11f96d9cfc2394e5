package core

// errors.go defines the service error taxonomy and the mapping from internal
// errors to user-facing messages with support codes. Field- and row-level
// problems never surface here: they are captured into a row's errors map or
// a batch's failed outcome list. Only request-shape problems (missing
// identity, unknown import, malformed payload) become request errors.

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound marks a referenced import or case that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated marks a request with no caller identity.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrMissingImport marks a batch submission without an import ID.
	ErrMissingImport = errors.New("missing import id")

	// ErrCaseIDExists marks a unique-constraint violation on the external
	// case identifier. Reported to users as caserec.MsgCaseIDExists.
	ErrCaseIDExists = errors.New("case id already exists")
)

// UserMessage is a user-facing error with a support code.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError converts an internal error to a user-friendly message. Unknown
// errors fall through to a generic message; the technical detail stays in
// the server log.
func MapError(err error) UserMessage {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return UserMessage{
			Code:    "AUTH001",
			Message: "User not authenticated",
			Action:  "Provide a valid API key and retry",
		}
	case errors.Is(err, ErrMissingImport):
		return UserMessage{
			Code:    "IMP001",
			Message: "Missing importId",
			Action:  "Start an import before submitting batches",
		}
	case errors.Is(err, ErrNotFound):
		return UserMessage{
			Code:    "IMP002",
			Message: err.Error(),
			Action:  "Check the identifier and try again",
		}
	case errors.Is(err, ErrCaseIDExists):
		return UserMessage{
			Code:    "CASE001",
			Message: "Case ID already exists",
			Action:  "Review the duplicate rows and resubmit",
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"):
		return UserMessage{
			Code:    "DB001",
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
		}
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "timeout"):
		return UserMessage{
			Code:    "DB002",
			Message: "The operation timed out",
			Action:  "Try a smaller batch or try again later",
		}
	}

	return UserMessage{
		Code:    "ERR000",
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
	}
}
