package errors

import (
	"context"
	"errors"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindTooMany    Kind = "too_many"
	KindTransient  Kind = "transient"
	KindInternal   Kind = "internal"
)

// CodeError is a classified failure. Sentinels below are compared with errors.Is,
// so wrapping with %w keeps them recognizable.
type CodeError struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *CodeError) Error() string {
	return e.Msg
}

// Is matches any CodeError carrying the same code, so a sentinel with a more
// specific message still satisfies errors.Is against the sentinel.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	return ok && t.Code == e.Code
}

// WithMsg copies e with a caller supplied message.
func (e *CodeError) WithMsg(msg string) *CodeError {
	return &CodeError{Kind: e.Kind, Code: e.Code, Msg: msg}
}

func newErr(kind Kind, code, msg string) *CodeError {
	return &CodeError{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrInvalid           = newErr(KindValidation, "invalid", "invalid request")
	ErrInvalidEmail      = newErr(KindValidation, "invalid_email", "invalid email format")
	ErrWeakPassword      = newErr(KindValidation, "weak_password", "password too short")
	ErrDuplicateEmail    = newErr(KindConflict, "duplicate_email", "email already registered")
	ErrAlreadyVoted      = newErr(KindConflict, "already_voted", "voter has already voted")
	ErrAlreadyVerified   = newErr(KindConflict, "already_verified", "voter already verified")
	ErrCandidateHasVotes = newErr(KindConflict, "candidate_has_votes", "candidate has recorded votes")
	ErrConflict          = newErr(KindConflict, "conflict", "conflict")
	ErrInvalidCode       = newErr(KindValidation, "invalid_code", "invalid verification code")
	ErrCodeExpired       = newErr(KindValidation, "code_expired", "verification code expired")
	ErrCodeConsumed      = newErr(KindConflict, "code_consumed", "verification code already used")
	ErrCodeAttempts      = newErr(KindTooMany, "code_attempts", "too many verification attempts, request a new code")
	ErrCooldown          = newErr(KindTooMany, "cooldown", "verification code recently sent, retry later")
	ErrTooMany           = newErr(KindTooMany, "too_many", "too many requests")
	ErrBadCredentials    = newErr(KindAuth, "bad_credentials", "invalid email or password")
	ErrNotVerified       = newErr(KindAuth, "not_verified", "email not verified")
	ErrUnauthorized      = newErr(KindAuth, "unauthorized", "unauthorized")
	ErrSessionExpired    = newErr(KindAuth, "session_expired", "session expired")
	ErrSessionInvalid    = newErr(KindAuth, "session_invalid", "invalid session")
	ErrForbidden         = newErr(KindAuth, "forbidden", "admin access required")
	ErrNotFound          = newErr(KindNotFound, "not_found", "not found")
	ErrVoterNotFound     = newErr(KindNotFound, "voter_not_found", "voter not found")
	ErrUnknownCandidate  = newErr(KindNotFound, "unknown_candidate", "candidate not found")
	ErrTransient         = newErr(KindTransient, "transient", "temporarily unavailable, retry later")
	ErrMailUnavailable   = newErr(KindTransient, "mail_unavailable", "verification email could not be sent, retry later")
	ErrInternal          = newErr(KindInternal, "internal", "internal error")
)

// As returns the outermost CodeError in the chain. Deadlines are reported as
// ErrTransient, anything unclassified as ErrInternal.
func As(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransient
	}
	return ErrInternal
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
