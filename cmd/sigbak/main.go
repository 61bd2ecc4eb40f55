package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jackwilsdon/sigbak-go"
)

// sandboxToken derives a short, deterministic hex token from the
// backup's own path, which identifies the backup without revealing the
// path itself; main only writes it to the debug log — the same pbkdf2-over-a-secret
// trick the original extractor used to turn a mnemonic into a backup
// token, just applied to a filesystem path instead of a passphrase.
func sandboxToken(path string) string {
	salt := []byte("sigbak-sandbox")
	key := pbkdf2.Key([]byte(path), salt, 4096, 8, sha256.New)
	return hex.EncodeToString(key)
}

func main() {
	var (
		passphrase = flag.String("passphrase", "", "backup passphrase (30 digits)")
		verify     = flag.Bool("verify", false, "only verify the backup authenticates, print nothing else")
		threadID   = flag.Int64("thread", 0, "if set, list messages for this thread id only")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		_, _ = fmt.Fprintf(os.Stderr, "usage: %s -passphrase=... [-verify] [-thread=ID] path-to-backup\n", os.Args[0])
		os.Exit(1)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *passphrase == "" {
		fmt.Fprintln(os.Stderr, "error: -passphrase is required")
		os.Exit(1)
	}

	ctx, err := sigbak.Open(path, *passphrase, sigbak.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	defer func() {
		_ = ctx.Close()
	}()

	logger.Debug("sandbox token", "token", sandboxToken(path))

	if *verify {
		if err := ctx.Verify(); err != nil {
			fatal(err)
		}
		fmt.Println("ok")
		return
	}

	var messages []sigbak.Message
	if *threadID != 0 {
		messages, err = ctx.MessagesForThread(*threadID)
	} else {
		messages, err = ctx.MessagesAll()
	}
	if err != nil {
		fatal(err)
	}

	for _, m := range messages {
		fmt.Printf("%d\t%s\t%s\n", m.TimeSent, sigbakDisplayName(&m), m.Text)
	}
}

func sigbakDisplayName(m *sigbak.Message) string {
	return sigbak.DisplayName(m.Recipient)
}

func fatal(err error) {
	var frameErr *sigbak.FrameError
	if errors.As(err, &frameErr) {
		_, _ = fmt.Fprintf(os.Stderr, "error: frame %d: %v\n", frameErr.Frame, frameErr.Err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
