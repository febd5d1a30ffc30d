package daemon

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) (*Daemon, string) {
	path := filepath.Join(t.TempDir(), "focustrack.pid")
	return New(path), path
}

func TestReadPID_Missing(t *testing.T) {
	d, _ := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid)
}

func TestWriteReadRemovePID(t *testing.T) {
	d, path := newTestDaemon(t)

	require.NoError(t, d.WritePID())
	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, runningPID, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), runningPID)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadPID_TrimsWhitespace(t *testing.T) {
	d, path := newTestDaemon(t)
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0644))

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestReadPID_Garbage(t *testing.T) {
	d, path := newTestDaemon(t)
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestIsRunning_StalePIDFileRemoved(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	deadPID := cmd.ProcessState.Pid()

	d, path := newTestDaemon(t)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(deadPID)), 0644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStop_NotRunning(t *testing.T) {
	d, _ := newTestDaemon(t)
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
}

func TestStop_SignalsProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	d, path := newTestDaemon(t)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)), 0644))

	require.NoError(t, d.Stop())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("process did not exit after SIGTERM")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, WaitForExit(ctx, cmd.Process.Pid))
}

func TestWaitForExit_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.Error(t, WaitForExit(ctx, os.Getpid()))
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())

	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
}
