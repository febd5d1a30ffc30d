package x11

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"

	"github.com/focustrack/focustrack/internal/models"
)

// Detector implements window.Sampler for X11 by shelling out to xdotool, xprop and xprintidle
type Detector struct {
	hasXdotool    bool
	hasXprop      bool
	hasXprintidle bool
}

// NewDetector creates a new X11 detector
func NewDetector() *Detector {
	d := &Detector{}
	d.hasXdotool = d.commandExists("xdotool")
	d.hasXprop = d.commandExists("xprop")
	d.hasXprintidle = d.commandExists("xprintidle")
	return d
}

// commandExists checks if a command is available in PATH
func (d *Detector) commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether xdotool is installed
func (d *Detector) IsAvailable() bool {
	return d.hasXdotool
}

// Name returns "x11-exec"
func (d *Detector) Name() string {
	return "x11-exec"
}

// FocusedWindow returns the currently focused window
func (d *Detector) FocusedWindow(ctx context.Context) (*models.Window, error) {
	if !d.hasXdotool {
		return nil, errors.New("xdotool is required for X11 detection")
	}

	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow").Output()
	if err != nil {
		// xdotool exits 1 when _NET_ACTIVE_WINDOW is unset, e.g. focus on the desktop
		var exitErr *exec.ExitError
		if ctx.Err() == nil && errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get active x11 window ID")
	}
	windowID := strings.TrimSpace(string(out))
	if windowID == "" || windowID == "0" {
		return nil, nil
	}

	out, err = exec.CommandContext(ctx, "xdotool", "getwindowname", windowID).Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get window name")
	}
	title := strings.TrimSpace(string(out))

	// WM_CLASS works for Flatpak apps where the PID is sandboxed
	var name string
	if d.hasXprop {
		if out, err := exec.CommandContext(ctx, "xprop", "-id", windowID, "WM_CLASS").Output(); err == nil {
			name = parseWMClass(string(out))
		}
	}

	if name == "" {
		name = d.processName(ctx, windowID)
	}

	return &models.Window{Name: name, Title: title}, nil
}

func (d *Detector) processName(ctx context.Context, windowID string) string {
	out, err := exec.CommandContext(ctx, "xdotool", "getwindowpid", windowID).Output()
	if err != nil {
		return ""
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 32)
	if err != nil || pid <= 0 {
		return ""
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}

// parseWMClass extracts the class name from WM_CLASS property
func parseWMClass(output string) string {
	parts := strings.Split(output, "=")
	if len(parts) < 2 {
		return ""
	}

	classInfo := strings.TrimSpace(parts[1])
	classInfo = strings.Trim(classInfo, "\"")

	classes := strings.Split(classInfo, ",")
	if len(classes) > 0 {
		className := strings.TrimSpace(classes[len(classes)-1])
		className = strings.Trim(className, "\" ")
		return className
	}

	return ""
}

// IdleMs returns milliseconds since the last input. Without xprintidle the
// user is never considered idle.
func (d *Detector) IdleMs(ctx context.Context) (uint64, error) {
	if !d.hasXprintidle {
		return 0, nil
	}

	out, err := exec.CommandContext(ctx, "xprintidle").Output()
	if err != nil {
		return 0, errors.Wrap(err, "failed to run xprintidle")
	}
	return parseIdle(string(out))
}

func parseIdle(output string) (uint64, error) {
	ms, err := strconv.ParseUint(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected xprintidle output %q", output)
	}
	return ms, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
