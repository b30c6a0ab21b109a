package service

import (
	"errors"
	"fmt"
)

// Codes the gateway pipeline reports. Clients and the API key guard
// match on them, so they are part of the wire contract.
const (
	CodeInvalidAPIKey        = "invalid_api_key"
	CodeAPIKeyInactive       = "api_key_inactive"
	CodeInvalidSubscription  = "invalid_subscription"
	CodeSubscriptionInactive = "subscription_inactive"
	CodeSubscriptionExpired  = "subscription_expired"
	CodeQuotaExhausted       = "quota_exhausted"
	CodeRateLimited          = "rate_limited"
)

// Error is what service methods return for anything a client should see.
// Kind picks the HTTP status, Code and Message form the JSON body.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type ErrorKind int

const (
	ErrBadRequest ErrorKind = iota
	ErrNotFound
	ErrForbidden
	ErrUnauthorized
	ErrInternal
	ErrUnavailable
	ErrBadGateway
	ErrTooManyRequests
)

func NewBadRequest(code, message string) *Error {
	return &Error{Kind: ErrBadRequest, Code: code, Message: message}
}

func NewNotFound(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func NewInternal(code, message string) *Error {
	return &Error{Kind: ErrInternal, Code: code, Message: message}
}

func NewTooManyRequests(code, message string) *Error {
	return &Error{Kind: ErrTooManyRequests, Code: code, Message: message}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}
