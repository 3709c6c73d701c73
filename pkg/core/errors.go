package core

import (
	"fmt"
)

// Error is the canonical failure result surfaced by the presence core and the
// gateway. Every operation that rejects a request returns one of these so the
// caller can branch on Type without parsing messages.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest  ErrorType = "invalid_request_error"
	ErrInvalidSession  ErrorType = "invalid_session_error"
	ErrInvalidIdentity ErrorType = "invalid_identity_error"
	ErrInvalidInvite   ErrorType = "invalid_invite_error"
	ErrCodeExpired     ErrorType = "code_expired_error"
	ErrCodeIncorrect   ErrorType = "code_incorrect_error"
	ErrNotAuthorized   ErrorType = "not_authorized_error"
	ErrNoData          ErrorType = "no_data_error"
	ErrAPI             ErrorType = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{Type: ErrInvalidRequest, Message: message, Param: param}
}

// NewInvalidSessionError creates an error for an unknown or revoked session id.
func NewInvalidSessionError(message string) *Error {
	return &Error{Type: ErrInvalidSession, Message: message}
}

// NewInvalidIdentityError creates an error for an identity with no bound session.
func NewInvalidIdentityError(message string) *Error {
	return &Error{Type: ErrInvalidIdentity, Message: message}
}

// NewInvalidInviteError creates an error for an unknown or expired invite token.
func NewInvalidInviteError(message string) *Error {
	return &Error{Type: ErrInvalidInvite, Message: message}
}

// NewCodeExpiredError creates an error for a verification code past its expiry.
func NewCodeExpiredError(message string) *Error {
	return &Error{Type: ErrCodeExpired, Message: message}
}

// NewCodeIncorrectError creates an error for an unknown or mismatched code.
func NewCodeIncorrectError(message string) *Error {
	return &Error{Type: ErrCodeIncorrect, Message: message}
}

// NewNotAuthorizedError creates an error for a missing consent edge.
func NewNotAuthorizedError(message string) *Error {
	return &Error{Type: ErrNotAuthorized, Message: message}
}

// NewNoDataError creates an error for absent live state.
func NewNoDataError(message string) *Error {
	return &Error{Type: ErrNoData, Message: message}
}

// NewAPIError creates a generic internal error.
func NewAPIError(message string) *Error {
	return &Error{Type: ErrAPI, Message: message}
}
