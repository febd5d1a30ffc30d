package x11

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/focustrack/focustrack/pkg/window"
)

func TestNewDetector(t *testing.T) {
	detector := NewDetector()
	if detector == nil {
		t.Fatal("NewDetector() returned nil")
	}
}

func TestName(t *testing.T) {
	detector := NewDetector()
	if name := detector.Name(); name != "x11-exec" {
		t.Errorf("Name() = %s, want %s", name, "x11-exec")
	}
}

func TestIsAvailable(t *testing.T) {
	detector := NewDetector()

	available := detector.IsAvailable()
	t.Logf("X11 detector available: %v", available)
	t.Logf("Has xdotool: %v", detector.hasXdotool)
	t.Logf("Has xprop: %v", detector.hasXprop)
	t.Logf("Has xprintidle: %v", detector.hasXprintidle)
}

func TestCommandExists(t *testing.T) {
	detector := NewDetector()

	tests := []struct {
		name    string
		command string
	}{
		{"ls should exist", "ls"},
		{"sh should exist", "sh"},
		{"nonexistent_cmd should not exist", "nonexistent_command_xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists := detector.commandExists(tt.command)
			t.Logf("Command %s exists: %v", tt.command, exists)
		})
	}
}

func TestFocusedWindow(t *testing.T) {
	detector := NewDetector()

	if !detector.IsAvailable() {
		t.Skip("X11 detector not available on this system")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w, err := detector.FocusedWindow(ctx)
	if err != nil {
		t.Logf("FocusedWindow() error (may be expected): %v", err)
		return
	}
	if w == nil {
		t.Log("no focused window")
		return
	}

	t.Logf("Name: %s", w.Name)
	t.Logf("Title: %s", w.Title)
}

// installTool writes an executable shell script named name into dir.
func installTool(t *testing.T, dir, name, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestFocusedWindowNoActiveWindow(t *testing.T) {
	dir := t.TempDir()
	installTool(t, dir, "xdotool", `case "$1" in
getactivewindow) echo "XGetWindowProperty[_NET_ACTIVE_WINDOW] failed (code=1)" >&2; exit 1;;
esac`)
	t.Setenv("PATH", dir)

	d := NewDetector()
	if !d.IsAvailable() {
		t.Fatal("fake xdotool not found on PATH")
	}

	w, err := d.FocusedWindow(context.Background())
	if err != nil {
		t.Fatalf("FocusedWindow() error = %v, want nil when nothing has focus", err)
	}
	if w != nil {
		t.Errorf("FocusedWindow() = %+v, want nil", w)
	}
}

func TestFocusedWindowFromTools(t *testing.T) {
	dir := t.TempDir()
	installTool(t, dir, "xdotool", `case "$1" in
getactivewindow) echo 41943047;;
getwindowname) echo "main.go - Code";;
*) exit 1;;
esac`)
	installTool(t, dir, "xprop", `echo 'WM_CLASS(STRING) = "code", "Code"'`)
	t.Setenv("PATH", dir)

	w, err := NewDetector().FocusedWindow(context.Background())
	if err != nil {
		t.Fatalf("FocusedWindow() error = %v", err)
	}
	if w == nil {
		t.Fatal("FocusedWindow() = nil, want a window")
	}
	if w.Name != "Code" || w.Title != "main.go - Code" {
		t.Errorf("FocusedWindow() = %+v, want Code / main.go - Code", w)
	}
}

func TestFocusedWindowTimeoutIsError(t *testing.T) {
	dir := t.TempDir()
	installTool(t, dir, "xdotool", "exec sleep 5")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := NewDetector().FocusedWindow(ctx); err == nil {
		t.Error("FocusedWindow() should fail when xdotool is killed by the deadline")
	}
}

func TestFocusedWindowWithoutXdotool(t *testing.T) {
	detector := &Detector{}

	if _, err := detector.FocusedWindow(context.Background()); err == nil {
		t.Error("FocusedWindow() without xdotool should fail")
	}
}

func TestIdleMsWithoutXprintidle(t *testing.T) {
	detector := &Detector{}

	idle, err := detector.IdleMs(context.Background())
	if err != nil {
		t.Fatalf("IdleMs() error: %v", err)
	}
	if idle != 0 {
		t.Errorf("IdleMs() = %d, want 0", idle)
	}
}

func TestParseIdle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"plain", "1234\n", 1234, false},
		{"zero", "0", 0, false},
		{"garbage", "n/a", 0, true},
		{"negative", "-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIdle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseIdle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseIdle(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Standard format",
			input:    `WM_CLASS(STRING) = "Navigator", "Firefox"`,
			expected: "Firefox",
		},
		{
			name:     "Single class",
			input:    `WM_CLASS(STRING) = "kitty", "kitty"`,
			expected: "kitty",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "No equals sign",
			input:    "WM_CLASS(STRING)",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseWMClass(tt.input)
			if result != tt.expected {
				t.Errorf("parseWMClass(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClose(t *testing.T) {
	detector := NewDetector()
	if err := detector.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}

func TestDetectorInterface(t *testing.T) {
	var _ window.Sampler = (*Detector)(nil)
}
