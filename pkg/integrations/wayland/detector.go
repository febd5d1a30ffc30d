package wayland

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"

	"github.com/focustrack/focustrack/internal/models"
)

const (
	CompositorSway     = "sway"
	CompositorHyprland = "hyprland"
	CompositorUnknown  = "unknown"
)

// Detector implements window.Sampler for wlroots compositors that expose
// their window tree over IPC (sway via swaymsg, Hyprland via hyprctl).
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{}
	d.hasSwaymsg = commandExists("swaymsg")
	d.hasHyprctl = commandExists("hyprctl")
	d.compositor = detectCompositor()
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// detectCompositor checks the IPC environment variables first and then the
// process table.
func detectCompositor() string {
	if os.Getenv("SWAYSOCK") != "" {
		return CompositorSway
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return CompositorHyprland
	}

	procs, err := process.Processes()
	if err != nil {
		return CompositorUnknown
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		switch name {
		case "sway":
			return CompositorSway
		case "Hyprland":
			return CompositorHyprland
		}
	}
	return CompositorUnknown
}

// Compositor returns the detected compositor
func (d *Detector) Compositor() string {
	return d.compositor
}

// IsAvailable reports whether the compositor's IPC tool is installed
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case CompositorSway:
		return d.hasSwaymsg
	case CompositorHyprland:
		return d.hasHyprctl
	default:
		return false
	}
}

// Name returns "wayland-<compositor>"
func (d *Detector) Name() string {
	return "wayland-" + d.compositor
}

// FocusedWindow returns the currently focused window
func (d *Detector) FocusedWindow(ctx context.Context) (*models.Window, error) {
	switch d.compositor {
	case CompositorSway:
		out, err := exec.CommandContext(ctx, "swaymsg", "-t", "get_tree", "-r").Output()
		if err != nil {
			return nil, errors.Wrap(err, "failed to execute swaymsg")
		}
		return d.resolve(ctx, parseSwayTree(out))
	case CompositorHyprland:
		out, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
		if err != nil {
			return nil, errors.Wrap(err, "failed to execute hyprctl")
		}
		return d.resolve(ctx, parseHyprlandWindow(out))
	default:
		return nil, errors.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
}

// focused is what the compositor reports about the focused client
type focused struct {
	class string
	title string
	pid   int32
	err   error
}

func (d *Detector) resolve(ctx context.Context, f *focused) (*models.Window, error) {
	if f == nil {
		return nil, nil
	}
	if f.err != nil {
		return nil, f.err
	}

	name := strings.TrimSpace(f.class)
	if name == "" && f.pid > 0 {
		if p, err := process.NewProcess(f.pid); err == nil {
			name, _ = p.NameWithContext(ctx)
		}
	}
	return &models.Window{Name: name, Title: f.title}, nil
}

type swayNode struct {
	Type             string `json:"type"`
	Focused          bool   `json:"focused"`
	Name             string `json:"name"`
	AppID            string `json:"app_id"`
	PID              int32  `json:"pid"`
	WindowProperties *struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

// parseSwayTree walks the output of `swaymsg -t get_tree` and returns the
// focused client. A focused workspace or output means nothing has focus.
func parseSwayTree(data []byte) *focused {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return &focused{err: errors.Wrap(err, "failed to decode sway tree")}
	}

	node := findFocused(&root)
	if node == nil || (node.Type != "con" && node.Type != "floating_con") {
		return nil
	}

	class := node.AppID
	if class == "" && node.WindowProperties != nil {
		class = node.WindowProperties.Class
	}
	return &focused{class: class, title: node.Name, pid: node.PID}
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

type hyprWindow struct {
	Address string `json:"address"`
	Class   string `json:"class"`
	Title   string `json:"title"`
	PID     int32  `json:"pid"`
}

// parseHyprlandWindow decodes `hyprctl activewindow -j`, which prints an
// empty object when no window is focused.
func parseHyprlandWindow(data []byte) *focused {
	var w hyprWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return &focused{err: errors.Wrap(err, "failed to decode hyprctl output")}
	}
	if w.Address == "" && w.Class == "" && w.Title == "" {
		return nil
	}
	return &focused{class: w.Class, title: w.Title, pid: w.PID}
}

// IdleMs always reports zero: neither compositor exposes the time since the
// last input over its IPC.
func (d *Detector) IdleMs(ctx context.Context) (uint64, error) {
	return 0, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	return nil
}
