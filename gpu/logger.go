//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/pixsort"
)

// slogger returns the module logger configured with pixsort.SetLogger.
func slogger() *slog.Logger {
	return pixsort.Logger()
}
