package sigbak

import (
	"errors"
	"fmt"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

// Sentinel error kinds, re-exported from the internal leaf package
// every layer below raises them from, so callers only ever need to
// import this package to use errors.Is. See SPEC_FULL.md §7.
var (
	ErrIO         = bkerrors.ErrIO
	ErrFormat     = bkerrors.ErrFormat
	ErrAuth       = bkerrors.ErrAuth
	ErrCrypto     = bkerrors.ErrCrypto
	ErrDatabase   = bkerrors.ErrDatabase
	ErrLookup     = bkerrors.ErrLookup
	ErrCorruption = bkerrors.ErrCorruption
)

// FrameError wraps an error encountered while reading or decoding one
// frame, attaching the frame's sequence number for diagnostics.
type FrameError struct {
	Frame int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// QueryError wraps an error encountered while running a semantic
// query, attaching a short description of which query failed.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// LastError returns the most recently recorded non-nil error, or nil
// if none has occurred yet. Every exported Context operation that can
// fail also records its error here before returning it, so callers
// that discard individual results can still inspect what last went
// wrong.
func (c *Context) LastError() error {
	return c.lastErr
}

func (c *Context) recordErr(err error) error {
	if err != nil {
		c.lastErr = err
	}
	return err
}

var _ error = (*FrameError)(nil)
var _ error = (*QueryError)(nil)

// wrapUnknown is used where a lower layer returned a bare error not
// already classified by one of the sentinels above.
func wrapUnknown(context string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) || errors.Is(err, ErrFormat) || errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrCrypto) || errors.Is(err, ErrDatabase) || errors.Is(err, ErrLookup) ||
		errors.Is(err, ErrCorruption) {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}
