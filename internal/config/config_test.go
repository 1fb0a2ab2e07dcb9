package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.ArchiveDir != filepath.Join(tempDir, "savebak") {
		t.Errorf("ArchiveDir = %q, expected %q", cfg.ArchiveDir, filepath.Join(tempDir, "savebak"))
	}
	if cfg.OnCorrupt != OnCorruptAbort {
		t.Errorf("OnCorrupt = %q, expected %q", cfg.OnCorrupt, OnCorruptAbort)
	}
	if !strings.HasPrefix(cfg.LiveDir, tempDir) {
		t.Errorf("LiveDir = %q, expected it under %q", cfg.LiveDir, tempDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load should not error for missing config: %v", err)
	}

	defaults, _ := DefaultConfig()
	if *cfg != *defaults {
		t.Errorf("Load = %+v, expected defaults %+v", cfg, defaults)
	}
}

func TestLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")
	content := `live_dir: /games/neo/saves
archive_dir: /backups/neo
on_corrupt: skip
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.LiveDir != "/games/neo/saves" {
		t.Errorf("LiveDir = %q, expected %q", cfg.LiveDir, "/games/neo/saves")
	}
	if cfg.ArchiveDir != "/backups/neo" {
		t.Errorf("ArchiveDir = %q, expected %q", cfg.ArchiveDir, "/backups/neo")
	}
	if cfg.OnCorrupt != OnCorruptSkip {
		t.Errorf("OnCorrupt = %q, expected %q", cfg.OnCorrupt, OnCorruptSkip)
	}
	// Unset fields keep their defaults
	if cfg.LogFile != filepath.Join(tempDir, ".savebak", "savebak.log") {
		t.Errorf("LogFile = %q, expected default", cfg.LogFile)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, "elsewhere.yaml")
	if err := os.WriteFile(configPath, []byte("archive_dir: /from/env\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ArchiveDir != "/from/env" {
		t.Errorf("ArchiveDir = %q, expected %q", cfg.ArchiveDir, "/from/env")
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("live_dir: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("LoadFrom should fail for malformed YAML")
	}
}

func TestLoadInvalidPolicy(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("on_corrupt: ignore\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(configPath)
	if err == nil || !strings.Contains(err.Error(), "on_corrupt") {
		t.Errorf("LoadFrom error = %v, expected an on_corrupt error", err)
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv(EnvConfigPath, "")

	cfg := &Config{
		LiveDir:    "/live",
		ArchiveDir: "/archive",
		OnCorrupt:  OnCorruptSkip,
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path, _ := ConfigPath()
	if path != filepath.Join(tempDir, ".savebak", "config.yaml") {
		t.Errorf("ConfigPath = %q", path)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.LiveDir != "/live" || loaded.ArchiveDir != "/archive" || loaded.OnCorrupt != OnCorruptSkip {
		t.Errorf("loaded = %+v, expected saved values", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "complete", cfg: Config{LiveDir: "/l", ArchiveDir: "/a", OnCorrupt: OnCorruptAbort}},
		{name: "empty policy", cfg: Config{LiveDir: "/l", ArchiveDir: "/a"}},
		{name: "no live dir", cfg: Config{ArchiveDir: "/a"}, wantErr: true},
		{name: "no archive dir", cfg: Config{LiveDir: "/l"}, wantErr: true},
		{name: "unknown policy", cfg: Config{LiveDir: "/l", ArchiveDir: "/a", OnCorrupt: "retry"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	tests := []struct {
		input    string
		expected string
	}{
		{"~/saves", filepath.Join(tempDir, "saves")},
		{"~", tempDir},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		result, err := ExpandPath(tt.input)
		if err != nil {
			t.Errorf("ExpandPath(%q) failed: %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ExpandPath(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

// ============================================================================
// Tests for error paths when HOME is unavailable
// ============================================================================

func TestExpandPathNoHome(t *testing.T) {
	t.Setenv("HOME", "")

	_, err := ExpandPath("~/saves")
	if !errors.Is(err, ErrNoHomeDir) {
		t.Errorf("Expected ErrNoHomeDir, got: %v", err)
	}

	result, err := ExpandPath("/absolute/path")
	if err != nil {
		t.Errorf("ExpandPath(/absolute/path) should succeed: %v", err)
	}
	if result != "/absolute/path" {
		t.Errorf("Expected /absolute/path, got %q", result)
	}
}

func TestConfigPathNoHome(t *testing.T) {
	t.Setenv("HOME", "")
	t.Setenv(EnvConfigPath, "")

	_, err := ConfigPath()
	if !errors.Is(err, ErrNoHomeDir) {
		t.Errorf("Expected ErrNoHomeDir, got: %v", err)
	}
}

func TestDefaultConfigNoHome(t *testing.T) {
	t.Setenv("HOME", "")

	_, err := DefaultConfig()
	if !errors.Is(err, ErrNoHomeDir) {
		t.Errorf("Expected ErrNoHomeDir, got: %v", err)
	}
}
