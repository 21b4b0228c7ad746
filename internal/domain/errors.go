package domain

import "errors"

var (
	// ErrMissingFields indicates a request without email, secret, or URL.
	ErrMissingFields = errors.New("missing required fields")

	// ErrUnknownEmail indicates the email has no registered secret.
	ErrUnknownEmail = errors.New("email not registered")

	// ErrInvalidSecret indicates the supplied secret does not match.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrGuardRejected indicates the Input Guard refused to forward the text.
	ErrGuardRejected = errors.New("request rejected by input guard")

	// ErrNoSubmitURL indicates the quiz page named no submission endpoint.
	ErrNoSubmitURL = errors.New("no submit URL found on quiz page")

	// ErrNoAnswer indicates no processor could produce an answer.
	ErrNoAnswer = errors.New("no answer generated")

	// ErrUpstream indicates a fetch or submission to a remote endpoint failed.
	ErrUpstream = errors.New("upstream request failed")
)
