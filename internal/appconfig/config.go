// Package appconfig resolves the sshman configuration directory and the
// settings read from it. A Config is built once at process start and passed
// down explicitly; nothing in this package keeps global state.
package appconfig

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// HomeEnv overrides the configuration directory.
	HomeEnv = "SSHMAN_HOME"

	hostsFileName    = "hosts"
	historyFileName  = "history.json"
	settingsFileName = "config.yaml"
)

// Settings holds the user-editable options stored in config.yaml.
type Settings struct {
	SSHBinary     string `yaml:"ssh_binary"`
	SSHConfigPath string `yaml:"ssh_config_path"`
	DefaultUser   string `yaml:"default_user"`
	AllocatePTY   bool   `yaml:"allocate_pty"`
	LogLevel      string `yaml:"log_level"`
}

// Config is the immutable runtime configuration.
type Config struct {
	Dir      string
	Settings Settings
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		SSHBinary:     "ssh",
		SSHConfigPath: "~/.ssh/config",
		LogLevel:      "warn",
	}
}

// ConfigDir returns the sshman directory.
// Uses SSHMAN_HOME if set, otherwise ~/.sshmanager.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".sshmanager"), nil
}

// Resolve locates the config directory and loads its settings.
func Resolve() (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	return Load(dir)
}

// Load reads config.yaml from dir.
// If the file doesn't exist, creates it with defaults.
func Load(dir string) (Config, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Config{}, err
	}
	path := filepath.Join(dir, settingsFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := Default()
			if err := Save(dir, s); err != nil {
				return Config{Dir: dir, Settings: s}, err
			}
			return Config{Dir: dir, Settings: s}, nil
		}
		return Config{}, err
	}
	s := Default()
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(s.SSHBinary) == "" {
		s.SSHBinary = "ssh"
	}
	if strings.TrimSpace(s.SSHConfigPath) == "" {
		s.SSHConfigPath = "~/.ssh/config"
	}
	if _, ok := levels[strings.ToLower(s.LogLevel)]; !ok {
		s.LogLevel = "warn"
	}
	return Config{Dir: dir, Settings: s}, nil
}

// Save writes settings to config.yaml in dir.
func Save(dir string, s Settings) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, settingsFileName), b, 0o600)
}

// HostsFile returns the path of the host registry.
func (c Config) HostsFile() string { return filepath.Join(c.Dir, hostsFileName) }

// HistoryFile returns the path of the connection history.
func (c Config) HistoryFile() string { return filepath.Join(c.Dir, historyFileName) }

// SettingsFile returns the path of config.yaml.
func (c Config) SettingsFile() string { return filepath.Join(c.Dir, settingsFileName) }

// ImportPath returns the ssh config file used by import, with ~ expanded.
func (c Config) ImportPath() string { return ExpandHome(c.Settings.SSHConfigPath) }

// User returns the username new records default to: the configured
// default_user, then $USER, then the OS account name.
func (c Config) User() string {
	if c.Settings.DefaultUser != "" {
		return c.Settings.DefaultUser
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level maps log_level to a slog level.
func (c Config) Level() slog.Level {
	if l, ok := levels[strings.ToLower(c.Settings.LogLevel)]; ok {
		return l
	}
	return slog.LevelWarn
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
