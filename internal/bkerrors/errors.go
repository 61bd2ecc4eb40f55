// Package bkerrors holds the sentinel error values shared by every
// layer of the backup engine (crypto stream, frame codec, replay
// engine, semantic queries) so that a caller anywhere up the stack can
// use errors.Is against a small, stable set of kinds instead of
// string-matching. The kinds mirror the error-handling design in
// spec §7: IOError, FormatError, AuthError, CryptoError, DbError,
// LookupError, CorruptionError.
//
// This lives in its own leaf package (rather than in the root sigbak
// package, as and161185-goph-keeper does with internal/errs) because
// the root package imports internal/frame, internal/cryptostream,
// internal/store and internal/query, and those packages need to raise
// these sentinels too; putting them in the root package would create
// an import cycle.
package bkerrors

import "errors"

var (
	// ErrIO covers file and stream I/O failures.
	ErrIO = errors.New("sigbak: io error")
	// ErrFormat covers malformed framing or protobuf content.
	ErrFormat = errors.New("sigbak: malformed frame")
	// ErrAuth covers HMAC verification failures (wrong passphrase or
	// tampered ciphertext).
	ErrAuth = errors.New("sigbak: authentication failed")
	// ErrCrypto covers cipher/HMAC initialization or finalization
	// failures unrelated to authentication.
	ErrCrypto = errors.New("sigbak: crypto error")
	// ErrDatabase covers SQL preparation/execution failures against
	// the in-memory replay database.
	ErrDatabase = errors.New("sigbak: database error")
	// ErrLookup covers missing recipients or missing attachment files.
	ErrLookup = errors.New("sigbak: lookup failed")
	// ErrCorruption covers invariant violations: length mismatches,
	// leftover mention placeholders, truncated backups.
	ErrCorruption = errors.New("sigbak: backup corrupted")
)
