package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/wxread/internal/locate"
)

// Backup layouts.
const (
	LayoutDir    = "dir"    // backup_dir is the extracted account directory
	LayoutITunes = "itunes" // backup_dir is an iTunes-style device backup
)

// Config represents ~/.wxread/config.toml.
type Config struct {
	BackupDir string `toml:"backup_dir"`
	Layout    string `toml:"layout"`
	Domain    string `toml:"domain"`
	UserDir   string `toml:"user_dir"`
	OutputDir string `toml:"output_dir"`
	LogLevel  string `toml:"log_level"`
	LogPath   string `toml:"log_path"`
}

// BaseDir returns ~/.wxread.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wxread")
}

// DefaultPath returns the config file path.
func DefaultPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Layout:    LayoutDir,
		Domain:    locate.DefaultDomain,
		OutputDir: "wxread-export",
		LogLevel:  "warn",
	}
}

// Load reads config from the given path on top of Default. Returns error if
// the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks that the config can locate a snapshot.
func (c *Config) Validate() error {
	if c.BackupDir == "" {
		return errors.New("backup_dir is not set")
	}
	switch c.Layout {
	case LayoutDir:
	case LayoutITunes:
		if c.UserDir == "" {
			return errors.New("user_dir is required for the itunes layout")
		}
	default:
		return fmt.Errorf("invalid layout %q: must be %q or %q", c.Layout, LayoutDir, LayoutITunes)
	}
	return nil
}

// Locator builds the locator described by the config.
func (c *Config) Locator() (locate.Locator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Layout == LayoutITunes {
		return locate.Backup{Root: c.BackupDir, Domain: c.Domain, UserDir: c.UserDir}, nil
	}
	return locate.Dir{Root: c.BackupDir}, nil
}
