package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        string   `json:"server" yaml:"server"`
	ControlPath   string   `json:"control_path" yaml:"control_path"`
	TelemetryPath string   `json:"telemetry_path" yaml:"telemetry_path"`
	StatePeriod   Duration `json:"state_period" yaml:"state_period"`
	FrameRate     int      `json:"frame_rate" yaml:"frame_rate"`
	LogLines      int      `json:"log_lines" yaml:"log_lines"`
	Deadzone      float64  `json:"deadzone" yaml:"deadzone"`
	JoystickDir   string   `json:"joystick_dir" yaml:"joystick_dir"`
	LogsDir       string   `json:"logs_dir" yaml:"logs_dir"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	Capture       string   `json:"capture" yaml:"capture"`
	RecentDir     string   `json:"recent_dir" yaml:"recent_dir"`
}

// Duration reads "100ms" style strings from either format.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"100ms\": %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Server:        "ws://localhost:8080",
		ControlPath:   "/ws",
		TelemetryPath: "/telem",
		StatePeriod:   Duration{100 * time.Millisecond},
		FrameRate:     60,
		LogLines:      1000,
		Deadzone:      0.05,
		JoystickDir:   "/dev/input",
		LogsDir:       "logs",
		LogLevel:      "info",
		RecentDir:     "recent",
	}
}

// DefaultPaths are searched in order when no path is given.
func DefaultPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		"aileron.json",
		"aileron.yaml",
		".aileron.json",
		filepath.Join(home, ".config", "aileron", "config.json"),
		filepath.Join(home, ".config", "aileron", "config.yaml"),
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range DefaultPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server == "" {
		c.Server = d.Server
	}
	if c.ControlPath == "" {
		c.ControlPath = d.ControlPath
	}
	if c.TelemetryPath == "" {
		c.TelemetryPath = d.TelemetryPath
	}
	if c.StatePeriod.Duration <= 0 {
		c.StatePeriod = d.StatePeriod
	}
	if c.FrameRate <= 0 {
		c.FrameRate = d.FrameRate
	}
	if c.LogLines <= 0 {
		c.LogLines = d.LogLines
	}
	if c.Deadzone <= 0 || c.Deadzone >= 1 {
		c.Deadzone = d.Deadzone
	}
	if c.JoystickDir == "" {
		c.JoystickDir = d.JoystickDir
	}
	if c.LogsDir == "" {
		c.LogsDir = d.LogsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.RecentDir == "" {
		c.RecentDir = d.RecentDir
	}
}

// ControlURL joins the server address with the control channel path.
func (c *Config) ControlURL() (string, error) {
	return c.join(c.ControlPath)
}

func (c *Config) TelemetryURL() (string, error) {
	return c.join(c.TelemetryPath)
}

func (c *Config) join(path string) (string, error) {
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", c.Server, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server address %q: scheme must be ws or wss", c.Server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server address %q: missing host", c.Server)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}
