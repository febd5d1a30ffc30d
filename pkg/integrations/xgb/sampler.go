// Package xgb samples the focused window and input idle time over a native X11 connection.
package xgb

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"

	"github.com/focustrack/focustrack/internal/models"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// ErrBusy is returned while an abandoned query is still waiting on the X server.
var ErrBusy = errors.New("previous X query still pending")

// Sampler implements window.Sampler with the X protocol and the MIT-SCREEN-SAVER extension.
type Sampler struct {
	// mu is held for the lifetime of one outstanding query, including one
	// whose caller gave up on ctx.
	mu        sync.Mutex
	closeOnce sync.Once
	conn      *xgb.Conn
	root      xproto.Window
	atoms     map[string]xproto.Atom
}

// NewSampler connects to $DISPLAY. It fails when the server lacks the screensaver extension.
func NewSampler() (*Sampler, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "screensaver extension unavailable")
	}

	s := &Sampler{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		s.atoms[name] = reply.Atom
	}

	return s, nil
}

func (s *Sampler) Name() string {
	return "xgb"
}

// FocusedWindow returns the active top-level window, or nil when nothing has focus.
func (s *Sampler) FocusedWindow(ctx context.Context) (*models.Window, error) {
	var w *models.Window
	err := s.query(ctx, func() (err error) {
		w, err = s.focusedWindow(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// query runs fn on its own goroutine so ctx can abandon a stalled reply. At most
// one query is outstanding: while an abandoned one still holds the connection,
// new queries fail fast with ErrBusy instead of piling up goroutines.
func (s *Sampler) query(ctx context.Context, fn func() error) error {
	if !s.mu.TryLock() {
		return ErrBusy
	}

	done := make(chan error, 1)
	go func() {
		defer s.mu.Unlock()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sampler) focusedWindow(ctx context.Context) (*models.Window, error) {
	id, err := s.activeWindow()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}

	instance, class := splitWMClass(s.property(id, s.atoms["WM_CLASS"], xproto.AtomString, 256))
	return &models.Window{
		Name:  appName(class, instance, s.processName(ctx, id)),
		Title: s.title(id),
	}, nil
}

// IdleMs returns the time since the last keyboard or pointer input.
func (s *Sampler) IdleMs(ctx context.Context) (uint64, error) {
	var ms uint64
	err := s.query(ctx, func() error {
		reply, err := screensaver.QueryInfo(s.conn, xproto.Drawable(s.root)).Reply()
		if err != nil {
			return errors.Wrap(err, "failed to query screensaver info")
		}
		ms = uint64(reply.MsSinceUserInput)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ms, nil
}

// Close closes the connection without waiting for an outstanding query; the
// pending reply fails once the connection is gone.
func (s *Sampler) Close() error {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
	})
	return nil
}

// activeWindow prefers _NET_ACTIVE_WINDOW and falls back to the input focus
// walked up to its top-level parent. Zero means no focused window.
func (s *Sampler) activeWindow() (xproto.Window, error) {
	data := s.property(s.root, s.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if len(data) >= 4 {
		if id := xproto.Window(binary.LittleEndian.Uint32(data)); id != 0 {
			return id, nil
		}
	}

	focus, err := xproto.GetInputFocus(s.conn).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get input focus")
	}
	if focus.Focus == 0 || focus.Focus == s.root || focus.Focus == xproto.InputFocusPointerRoot {
		return 0, nil
	}
	return s.topLevel(focus.Focus), nil
}

func (s *Sampler) topLevel(id xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(s.conn, id).Reply()
		if err != nil || reply.Parent == s.root || reply.Parent == 0 {
			return id
		}
		id = reply.Parent
	}
}

func (s *Sampler) property(id xproto.Window, atom, typ xproto.Atom, length uint32) []byte {
	reply, err := xproto.GetProperty(s.conn, false, id, atom, typ, 0, length).Reply()
	if err != nil {
		return nil
	}
	return reply.Value
}

func (s *Sampler) title(id xproto.Window) string {
	if data := s.property(id, s.atoms["_NET_WM_NAME"], s.atoms["UTF8_STRING"], 256); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return strings.TrimRight(string(s.property(id, s.atoms["WM_NAME"], xproto.AtomString, 256)), "\x00")
}

func (s *Sampler) processName(ctx context.Context, id xproto.Window) string {
	data := s.property(id, s.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if len(data) < 4 {
		return ""
	}
	pid := binary.LittleEndian.Uint32(data)
	if pid == 0 {
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

// splitWMClass splits the NUL separated WM_CLASS value into instance and class.
func splitWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// appName picks the window class, then the process name, then the class instance.
func appName(class, instance, processName string) string {
	for _, name := range []string{class, processName, instance} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}
