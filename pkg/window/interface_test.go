package window

import (
	"context"
	"errors"
	"testing"

	"github.com/focustrack/focustrack/internal/models"
)

type MockSampler struct {
	window    *models.Window
	idleMs    uint64
	windowErr error
	idleErr   error
	closeErr  error
}

func (m *MockSampler) FocusedWindow(ctx context.Context) (*models.Window, error) {
	return m.window, m.windowErr
}

func (m *MockSampler) IdleMs(ctx context.Context) (uint64, error) {
	return m.idleMs, m.idleErr
}

func (m *MockSampler) Name() string {
	return "mock"
}

func (m *MockSampler) Close() error {
	return m.closeErr
}

func TestMockSampler(t *testing.T) {
	var _ Sampler = (*MockSampler)(nil)

	mock := &MockSampler{
		window: &models.Window{Name: "Editor", Title: "main.go"},
		idleMs: 1500,
	}

	w, err := mock.FocusedWindow(context.Background())
	if err != nil {
		t.Errorf("FocusedWindow() error: %v", err)
	}
	if !w.Focused() {
		t.Error("Focused() = false, want true")
	}
	if w.Name != "Editor" {
		t.Errorf("Name = %s, want Editor", w.Name)
	}

	idle, err := mock.IdleMs(context.Background())
	if err != nil {
		t.Errorf("IdleMs() error: %v", err)
	}
	if idle != 1500 {
		t.Errorf("IdleMs() = %d, want 1500", idle)
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestSamplerResults(t *testing.T) {
	tests := []struct {
		name        string
		window      *models.Window
		windowErr   error
		wantFocused bool
		wantErr     bool
	}{
		{
			name:        "focused window",
			window:      &models.Window{Name: "Browser", Title: "docs"},
			wantFocused: true,
		},
		{
			name:        "nothing focused",
			window:      nil,
			wantFocused: false,
		},
		{
			name:        "empty name counts as unfocused",
			window:      &models.Window{Name: "", Title: "Desktop"},
			wantFocused: false,
		},
		{
			name:      "query failure",
			windowErr: errors.New("display unavailable"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockSampler{window: tt.window, windowErr: tt.windowErr}

			w, err := mock.FocusedWindow(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("FocusedWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := w.Focused(); got != tt.wantFocused {
				t.Errorf("Focused() = %v, want %v", got, tt.wantFocused)
			}
		})
	}
}
