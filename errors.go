package orderpipe

import (
	"errors"

	"golang.org/x/xerrors"
)

// ErrMalformedTrigger marks trigger payloads that can never become valid.
// Handlers acknowledge these instead of re-raising so the host does not
// redeliver a permanently broken message forever.
var ErrMalformedTrigger = errors.New("malformed trigger payload")

// IsNonRetryable reports whether err is classified as safe to acknowledge
// without retrying.
func IsNonRetryable(err error) bool {
	return xerrors.Is(err, ErrMalformedTrigger)
}
