package gpu

import (
	"log/slog"

	coil "github.com/quyse/coil-core-sub001"
)

// slogger returns the current package logger.
// All logging in gpu goes through this function.
func slogger() *slog.Logger { return coil.Logger() }
