package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfigCreatesFileWhenMissing(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	initialized = false

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.DefaultPort != 47619 {
		t.Errorf("want default port 47619, got %d", cfg.DefaultPort)
	}
	if _, err := os.Stat(filepath.Join(dir, "agent.json")); err != nil {
		t.Errorf("want agent.json created, got %v", err)
	}
}

func TestGetConfigCachesAfterFirstLoad(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	initialized = false

	first, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	_ = os.Remove(filepath.Join(dir, "agent.json"))
	second, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig (cached): %v", err)
	}
	if first != second {
		t.Errorf("want cached config unchanged, got %+v vs %+v", first, second)
	}
}
