package detector

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/pkg/integrations/wayland"
	"github.com/focustrack/focustrack/pkg/integrations/x11"
	"github.com/focustrack/focustrack/pkg/integrations/xgb"
	"github.com/focustrack/focustrack/pkg/window"
)

// ErrUnsupported is returned when no sampler can run in this session.
var ErrUnsupported = errors.New("no supported window sampler for this session")

// New returns a sampler for the given kind: "xgb", "exec", "wayland" or "auto".
// Auto uses the compositor IPC in a Wayland session, then prefers the native X
// connection and falls back to the command-line tools.
func New(kind string, logger zerolog.Logger) (window.Sampler, error) {
	switch kind {
	case "xgb":
		return newNative()
	case "exec":
		return newExec()
	case "wayland":
		return newWayland()
	case "auto", "":
	default:
		return nil, errors.Errorf("unknown sampler %q", kind)
	}

	switch DetectDisplayServer() {
	case "unknown":
		return nil, ErrUnsupported
	case "wayland":
		s, err := newWayland()
		if err == nil {
			return s, nil
		}
		// XWayland clients are still visible through DISPLAY
		logger.Debug().Err(err).Msg("compositor IPC unavailable, trying X")
	}

	s, err := newNative()
	if err == nil {
		return s, nil
	}
	logger.Debug().Err(err).Msg("native X sampler unavailable, trying command-line tools")

	return newExec()
}

func newNative() (window.Sampler, error) {
	s, err := xgb.NewSampler()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newExec() (window.Sampler, error) {
	d := x11.NewDetector()
	if !d.IsAvailable() {
		return nil, errors.Wrap(ErrUnsupported, "xdotool not found")
	}
	return d, nil
}

func newWayland() (window.Sampler, error) {
	d := wayland.NewDetector()
	if !d.IsAvailable() {
		return nil, errors.Wrapf(ErrUnsupported, "no IPC tool for compositor %s", d.Compositor())
	}
	return d, nil
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
