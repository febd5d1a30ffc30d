package window

import (
	"context"

	"github.com/focustrack/focustrack/internal/models"
)

// Sampler is the interface that all focus/idle sampling implementations must satisfy
type Sampler interface {
	// FocusedWindow returns the currently focused window, or nil when nothing has focus.
	// An error means the query failed this time and may succeed on the next tick.
	FocusedWindow(ctx context.Context) (*models.Window, error)

	// IdleMs returns the milliseconds elapsed since the last user input.
	IdleMs(ctx context.Context) (uint64, error)

	// Name identifies the implementation, e.g. "xgb" or "x11-exec"
	Name() string

	// Close cleans up any resources used by the sampler
	Close() error
}
