package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger whose output goes nowhere. Tests hand it
// to components that log on the side but whose log output is not what the
// test asserts on.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
