package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/history"
	"github.com/focustrack/focustrack/internal/metrics"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/sprint"
	"github.com/focustrack/focustrack/internal/storage"
	"github.com/focustrack/focustrack/internal/tracker"
	"github.com/focustrack/focustrack/internal/web"
)

const historyFixture = `[
	{"name":"Editor","title":"main.go","start":1000,"end":61000},
	{"name":"Browser","title":"docs","start":61000,"end":91000}
]`

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// setupEnv points every path at a temp dir so tests never touch real state.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FOCUSTRACK_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("FOCUSTRACK_STORAGE_DATA_DIR", dir)
	t.Setenv("FOCUSTRACK_DAEMON_PID_FILE", filepath.Join(dir, "focustrack.pid"))
	t.Setenv("FOCUSTRACK_DAEMON_LOG_FILE", filepath.Join(dir, "focustrack.log"))
	t.Setenv("FOCUSTRACK_LOG_LEVEL", "error")
	t.Setenv("FOCUSTRACK_LOG_FORMAT", "json")
	t.Setenv("FOCUSTRACK_TRACKER_SAMPLER", "auto")
	t.Setenv("FOCUSTRACK_STORAGE_BACKEND", "file")
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("XDG_SESSION_TYPE", "")
	return dir
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(newRootCmd(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "focustrack version "+version)
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("FOCUSTRACK_STORAGE_BACKEND", "s3")

	_, err := executeCommand(newRootCmd(), "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")
}

func TestReportJSON_Offline(t *testing.T) {
	dir := setupEnv(t)
	writeFile(t, filepath.Join(dir, "history.json"), historyFixture)

	out, err := executeCommand(newRootCmd(), "report", "all", "--json")
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Apps, 2)
	assert.Equal(t, "Editor", report.Apps[0].AppName)
	assert.Equal(t, int64(90000), report.TotalMillis)
}

func TestReportText_InvalidPeriod(t *testing.T) {
	setupEnv(t)

	_, err := executeCommand(newRootCmd(), "report", "fortnight")
	assert.Error(t, err)
}

func TestHistory_Offline(t *testing.T) {
	dir := setupEnv(t)
	writeFile(t, filepath.Join(dir, "history.json"), historyFixture)

	out, err := executeCommand(newRootCmd(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Editor")
	assert.Contains(t, out, "Browser")

	out, err = executeCommand(newRootCmd(), "history", "--limit", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Editor")
	assert.Contains(t, out, "Browser")
}

func TestHistory_Empty(t *testing.T) {
	setupEnv(t)

	out, err := executeCommand(newRootCmd(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No activity recorded.")
}

func TestSprintList_Offline(t *testing.T) {
	dir := setupEnv(t)
	writeFile(t, filepath.Join(dir, "sprints.json"), `[{"date":1000,"start":1000,"end":91000,
		"activities":[],"summary":{"activitiesCount":2,"totalDuration":90000,"averageDuration":45000}}]`)

	out, err := executeCommand(newRootCmd(), "sprint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Activities")
	assert.Contains(t, out, "45s")
}

func TestSprintList_CorruptFileIsReset(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "sprints.json")
	writeFile(t, path, "{not json")

	out, err := executeCommand(newRootCmd(), "sprint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sprints recorded.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSprintStart_RequiresDaemon(t *testing.T) {
	setupEnv(t)

	_, err := executeCommand(newRootCmd(), "sprint", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon is not running")
}

func TestClear_Offline(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "history.json")
	writeFile(t, path, historyFixture)

	root := newRootCmd()
	root.SetIn(strings.NewReader("no\n"))
	out, err := executeCommand(root, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Operation cancelled")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, historyFixture, string(data))

	out, err = executeCommand(newRootCmd(), "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestClear_SQLite(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("FOCUSTRACK_STORAGE_BACKEND", "sqlite")
	t.Setenv("FOCUSTRACK_STORAGE_DATABASE_PATH", filepath.Join(dir, "focustrack.db"))

	_, err := executeCommand(newRootCmd(), "clear", "--yes")
	require.NoError(t, err)

	out, err := executeCommand(newRootCmd(), "report", "all", "--json")
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Apps)
}

func TestStorage_File(t *testing.T) {
	dir := setupEnv(t)
	writeFile(t, filepath.Join(dir, "history.json"), historyFixture)

	out, err := executeCommand(newRootCmd(), "storage")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend: file ("+dir+")")
	assert.Regexp(t, `history\.json\s+\d+ bytes`, out)
	assert.Regexp(t, `sprints\.json\s+missing`, out)
}

func TestStorage_SQLite(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("FOCUSTRACK_STORAGE_BACKEND", "sqlite")
	t.Setenv("FOCUSTRACK_STORAGE_DATABASE_PATH", filepath.Join(dir, "focustrack.db"))

	out, err := executeCommand(newRootCmd(), "storage")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "Errors in the last 24h0m0s: 0")

	_, err = executeCommand(newRootCmd(), "clear", "--yes")
	require.NoError(t, err)

	out, err = executeCommand(newRootCmd(), "storage", "--prune", "720h")
	require.NoError(t, err)
	assert.Contains(t, out, "history.json")
	assert.Contains(t, out, "sprints.json")
	assert.Contains(t, out, "Pruned 0 error logs")
}

func TestStatus_NotRunning(t *testing.T) {
	setupEnv(t)

	out, err := executeCommand(newRootCmd(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Not running")
	assert.Contains(t, out, "Could not detect current window")
}

func TestStop_NotRunning(t *testing.T) {
	setupEnv(t)

	out, err := executeCommand(newRootCmd(), "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon is not running")
}

type stubSampler struct{ window *models.Window }

func (s *stubSampler) FocusedWindow(ctx context.Context) (*models.Window, error) {
	return s.window, nil
}
func (s *stubSampler) IdleMs(ctx context.Context) (uint64, error) { return 0, nil }
func (s *stubSampler) Name() string                               { return "stub" }
func (s *stubSampler) Close() error                               { return nil }

// startFakeDaemon serves the web API for a tracker in this process and
// records this process as the running daemon.
func startFakeDaemon(t *testing.T, dir string) (*tracker.Tracker, *stubSampler) {
	t.Helper()

	cfg := config.Default()
	gw := storage.NewMemoryGateway()
	m := metrics.New()
	w := storage.NewWriter(gw, time.Second, zerolog.Nop(), m)
	hs := history.NewStore(gw, w, cfg.Storage.HistoryKey, zerolog.Nop())
	sr := sprint.NewRecorder(gw, w, cfg.Storage.SprintKey, cfg.Sprint, zerolog.Nop())

	sampler := &stubSampler{}
	tr := tracker.New(tracker.OptionsFromConfig(cfg), sampler, hs, sr, m, zerolog.Nop())

	handler, err := web.NewHandler(cfg, tr, m, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(web.NewServer(cfg, handler, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	t.Setenv("FOCUSTRACK_WEB_HOST", u.Hostname())
	t.Setenv("FOCUSTRACK_WEB_PORT", u.Port())

	writeFile(t, filepath.Join(dir, "focustrack.pid"), strconv.Itoa(os.Getpid()))
	return tr, sampler
}

func TestSprintFlow_ThroughDaemon(t *testing.T) {
	dir := setupEnv(t)
	tr, sampler := startFakeDaemon(t, dir)

	out, err := executeCommand(newRootCmd(), "sprint", "start")
	require.NoError(t, err)
	assert.Contains(t, out, "Sprint started")

	sampler.window = &models.Window{Name: "Editor", Title: "main.go"}
	require.NoError(t, tr.Tick(context.Background()))

	out, err = executeCommand(newRootCmd(), "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Running")
	assert.Contains(t, out, "Sampler: stub")
	assert.Contains(t, out, "App: Editor")
	assert.Contains(t, out, "Sprint in progress")

	out, err = executeCommand(newRootCmd(), "sprint", "end")
	require.NoError(t, err)
	assert.Contains(t, out, "Sprint recorded: 1 activities")

	_, err = executeCommand(newRootCmd(), "sprint", "end")
	require.Error(t, err)
	assert.Contains(t, err.Error(), tracker.ErrNoSprint.Error())

	out, err = executeCommand(newRootCmd(), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Editor")

	_, err = executeCommand(newRootCmd(), "clear", "--yes")
	require.NoError(t, err)
	assert.Empty(t, tr.History())
}
