package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/wxread/internal/locate"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{BackupDir: "/backups/phone", Layout: LayoutITunes, UserDir: "Documents/abc", LogLevel: "debug"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.BackupDir != "/backups/phone" {
		t.Errorf("BackupDir = %q, want %q", loaded.BackupDir, "/backups/phone")
	}
	if loaded.Layout != LayoutITunes || loaded.UserDir != "Documents/abc" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("backup_dir = \"/b\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Layout != LayoutDir || cfg.Domain != locate.DefaultDomain || cfg.LogLevel != "warn" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("LoadOrDefault() = %+v, want defaults", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("backup_dir = [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Error("LoadOrDefault() expected parse error")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestValidateAndLocator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		want    locate.Locator
	}{
		{"missing backup dir", Config{Layout: LayoutDir}, true, nil},
		{"bad layout", Config{BackupDir: "/b", Layout: "zip"}, true, nil},
		{"itunes without user dir", Config{BackupDir: "/b", Layout: LayoutITunes}, true, nil},
		{"dir", Config{BackupDir: "/b", Layout: LayoutDir}, false, locate.Dir{Root: "/b"}},
		{"itunes", Config{BackupDir: "/b", Layout: LayoutITunes, Domain: "D", UserDir: "Documents/x"}, false,
			locate.Backup{Root: "/b", Domain: "D", UserDir: "Documents/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := tt.cfg.Locator()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Locator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if loc != tt.want {
				t.Errorf("Locator() = %#v, want %#v", loc, tt.want)
			}
		})
	}
}
