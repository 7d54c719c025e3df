package types

import "errors"

var (
	// ErrTransport is a failed provider fetch: timeout, network or non-2xx.
	ErrTransport = errors.New("transport error")
	// ErrParse is a malformed or incomplete provider payload.
	ErrParse = errors.New("parse error")
	// ErrValidation is a merge result that must not be written.
	ErrValidation = errors.New("validation error")
	// ErrStale means the provider has not published anything new yet.
	ErrStale = errors.New("provider data not yet updated")
	// ErrUpToDate means the stored series was already fresh at commit time.
	ErrUpToDate = errors.New("already up to date")
	// ErrInput is invalid input rejected before use.
	ErrInput = errors.New("invalid input")
)

// IsNoOp reports whether err is an expected condition that only skips a write.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrStale) || errors.Is(err, ErrUpToDate)
}
