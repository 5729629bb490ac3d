package testutil

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a debug-level logger so decoder log paths run in
// tests. Output goes to t.Log under -v and is discarded otherwise.
func NewTestLogger(t testing.TB) zerolog.Logger {
	var w io.Writer = io.Discard
	if testing.Verbose() {
		w = zerolog.ConsoleWriter{Out: tbWriter{t}, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}
	}
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Str("test", t.Name()).Logger()
}

type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
