// Package testutil provides test helpers: contexts, loggers and builders
// for hand-assembled DWARF sections and object files.
package testutil

import (
	"context"
	"time"
)

// NewTestContext creates a test context with a 30-second timeout, for
// tests that drive cancellable whole-object scans.
func NewTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
