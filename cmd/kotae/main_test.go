package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kotae.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if resolved != path {
		t.Errorf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigCwdFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("debug: true\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("expected cwd config.yaml, got %q", resolved)
	}
	if !cfg.Debug {
		t.Error("expected debug=true from cwd config")
	}
}
