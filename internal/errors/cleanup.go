// Package errors provides error handling helpers for the dwarfkit CLI.
package errors

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitInput reports an object file that could not be opened or is not
	// a supported container.
	ExitInput = 2
	// ExitDecode reports debug info that failed to decode.
	ExitDecode = 3
)

// DeferClose closes c and logs a failure at warn level. Meant for defer
// statements where the close error has nowhere else to go.
func DeferClose(logger zerolog.Logger, c io.Closer, msg string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// ExitCode classifies err for the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, dwarf.ErrIO), errors.Is(err, dwarf.ErrFormat):
		return ExitInput
	case errors.Is(err, dwarf.ErrCorrupt), errors.Is(err, dwarf.ErrUnsupported),
		errors.Is(err, dwarf.ErrNotFound), errors.Is(err, dwarf.ErrInvalidState):
		return ExitDecode
	}
	return ExitFailure
}
