package sigbak

import "log/slog"

// Option configures a Context at Open time.
type Option func(*Context)

// WithLogger sets the structured logger used for the debug records
// written on open and replay. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBufferSize sets the chunk size used when streaming an
// attachment/avatar/sticker payload through WriteAttachment. The
// default matches internal/store's own bufSize; n <= 0 is ignored and
// leaves the default in place.
func WithBufferSize(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithPassphraseSpaceStripping controls whether Open strips spaces
// from the passphrase before key derivation, matching Signal
// Android's own habit of rendering the 30-digit backup passphrase to
// the user in space-separated groups of five. Defaults to true.
func WithPassphraseSpaceStripping(strip bool) Option {
	return func(c *Context) {
		c.stripSpaces = strip
	}
}
