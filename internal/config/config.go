package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const appName = "focustrack"

// Config holds all application configuration
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" envconfig:"STORAGE"`

	// Tracker configuration
	Tracker TrackerConfig `yaml:"tracker" envconfig:"TRACKER"`

	// Sprint file parsing configuration
	Sprint SprintConfig `yaml:"sprint" envconfig:"SPRINT"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon" envconfig:"DAEMON"`

	// Report configuration
	Report ReportConfig `yaml:"report" envconfig:"REPORT"`

	// Web server configuration
	Web WebConfig `yaml:"web" envconfig:"WEB"`

	// Logging configuration
	Log LogConfig `yaml:"log" envconfig:"LOG"`
}

// StorageConfig selects where history and sprints are persisted
type StorageConfig struct {
	Backend      string        `yaml:"backend" envconfig:"BACKEND"`             // "file" or "sqlite"
	DataDir      string        `yaml:"data_dir" envconfig:"DATA_DIR"`           // Empty means $XDG_DATA_HOME/focustrack
	DatabasePath string        `yaml:"database_path" envconfig:"DATABASE_PATH"` // sqlite backend only; empty means <data_dir>/focustrack.db
	HistoryKey   string        `yaml:"history_key" envconfig:"HISTORY_KEY"`
	SprintKey    string        `yaml:"sprint_key" envconfig:"SPRINT_KEY"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`   // How often to sample the focused window
	MinPollInterval time.Duration `yaml:"-" ignored:"true"`                          // Minimum allowed poll interval
	MaxPollInterval time.Duration `yaml:"-" ignored:"true"`                          // Maximum allowed poll interval
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`     // Input idle time that closes the current entry; 0 disables
	SampleTimeout   time.Duration `yaml:"sample_timeout" envconfig:"SAMPLE_TIMEOUT"` // Upper bound for one sampler call
	CloseOnStop     bool          `yaml:"close_on_stop" envconfig:"CLOSE_ON_STOP"`   // Close the open entry when tracking stops
	Sampler         string        `yaml:"sampler" envconfig:"SAMPLER"`               // "auto", "xgb", "exec" or "wayland"
}

// SprintConfig holds the heuristics used when reading the sprint file
type SprintConfig struct {
	StripBOM     bool   `yaml:"strip_bom" envconfig:"STRIP_BOM"`
	RequireArray bool   `yaml:"require_array" envconfig:"REQUIRE_ARRAY"`
	ArrayPrefix  string `yaml:"array_prefix" envconfig:"ARRAY_PREFIX"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file" envconfig:"PID_FILE"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file" envconfig:"LOG_FILE"` // Where the detached daemon writes its log
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `yaml:"time_zone" envconfig:"TIME_ZONE"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `yaml:"host" envconfig:"HOST"` // Host to bind web server to
	Port int    `yaml:"port" envconfig:"PORT"` // Port for web server
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // zerolog level name
	Format string `yaml:"format" envconfig:"FORMAT"` // "console" or "json"
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:      "file",
			HistoryKey:   "history.json",
			SprintKey:    "sprints.json",
			WriteTimeout: 5 * time.Second,
		},
		Tracker: TrackerConfig{
			PollInterval:    time.Second,
			MinPollInterval: 100 * time.Millisecond,
			MaxPollInterval: time.Minute,
			IdleTimeout:     5 * time.Minute,
			SampleTimeout:   800 * time.Millisecond,
			Sampler:         "auto",
		},
		Sprint: SprintConfig{
			StripBOM:     true,
			RequireArray: true,
			ArrayPrefix:  "[",
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/%s-%d.pid", appName, os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/%s-%d.log", appName, os.Getuid()),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage backend must be file or sqlite, got %q", c.Storage.Backend)
	}

	if c.Storage.HistoryKey == "" || c.Storage.SprintKey == "" {
		return fmt.Errorf("storage keys cannot be empty")
	}

	if c.Storage.HistoryKey == c.Storage.SprintKey {
		return fmt.Errorf("history and sprint keys must differ, both are %q", c.Storage.HistoryKey)
	}

	if c.Storage.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	// Validate tracker intervals
	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Tracker.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout cannot be negative")
	}

	if c.Tracker.SampleTimeout <= 0 {
		return fmt.Errorf("sample timeout must be positive")
	}

	switch c.Tracker.Sampler {
	case "auto", "xgb", "exec", "wayland":
	default:
		return fmt.Errorf("sampler must be auto, xgb, exec or wayland, got %q", c.Tracker.Sampler)
	}

	if c.Sprint.RequireArray && c.Sprint.ArrayPrefix == "" {
		return fmt.Errorf("array prefix cannot be empty when require_array is set")
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.Log.Format)
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// IdleTimeoutMillis returns the idle timeout in milliseconds
func (c *Config) IdleTimeoutMillis() uint64 {
	return uint64(c.Tracker.IdleTimeout.Milliseconds())
}

// ResolveDataDir returns the storage directory, falling back to the XDG data directory.
func (c *Config) ResolveDataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName), nil
}

// ResolveDatabasePath returns the sqlite file path for the sqlite backend.
func (c *Config) ResolveDatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".db"), nil
}

// Address returns host:port of the web API.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Storage:
    Backend: %s
    Data Dir: %s
    History Key: %s
    Sprint Key: %s
    Write Timeout: %v
  Tracker:
    Poll Interval: %v
    Min Interval: %v
    Max Interval: %v
    Idle Timeout: %v
    Sample Timeout: %v
    Close On Stop: %v
    Sampler: %s
  Sprint:
    Strip BOM: %v
    Require Array: %v
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d
  Log:
    Level: %s
    Format: %s`,
		c.Storage.Backend,
		c.Storage.DataDir,
		c.Storage.HistoryKey,
		c.Storage.SprintKey,
		c.Storage.WriteTimeout,
		c.Tracker.PollInterval,
		c.Tracker.MinPollInterval,
		c.Tracker.MaxPollInterval,
		c.Tracker.IdleTimeout,
		c.Tracker.SampleTimeout,
		c.Tracker.CloseOnStop,
		c.Tracker.Sampler,
		c.Sprint.StripBOM,
		c.Sprint.RequireArray,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
		c.Log.Level,
		c.Log.Format,
	)
}
