package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrForbidden          = errors.New("access forbidden")

	// ErrStoreUnavailable marks infrastructure failures of the credential
	// store. Callers may retry these; they are never validation errors.
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// ErrUnauthenticated is the only token failure a client ever observes.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Token rejection reasons. Each wraps ErrUnauthenticated and is meant for logs
// and metrics only.
var (
	ErrTokenExpired           error = &tokenError{reason: "expired"}
	ErrTokenMalformed         error = &tokenError{reason: "malformed"}
	ErrTokenSignatureMismatch error = &tokenError{reason: "signature_mismatch"}
)

type tokenError struct {
	reason string
}

func (e *tokenError) Error() string { return "token " + e.reason }

func (e *tokenError) Unwrap() error { return ErrUnauthenticated }

// TokenFailureReason returns a short label for a token rejection, suitable for
// logs and metric labels. Unknown errors are reported as "malformed".
func TokenFailureReason(err error) string {
	var te *tokenError
	if errors.As(err, &te) {
		return te.reason
	}
	return "malformed"
}
