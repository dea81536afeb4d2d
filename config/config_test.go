package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8121 || cfg.TickMs != 50 || cfg.SeekPolicy != "preserve" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gls.yaml")
	data := "data_dir: /srv/gls\nport: 9000\nseek_policy: reset\ndefault_language: zhs\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.SeekPolicy != "reset" || cfg.DefaultLanguage != "zhs" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TickMs != 50 {
		t.Fatalf("unset field lost its default: %+v", cfg)
	}
	if cfg.TalksDir() != filepath.Join("/srv/gls", "talks") {
		t.Fatalf("TalksDir = %q", cfg.TalksDir())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []string{
		"seek_policy: sideways\n",
		"tick_ms: -5\n",
		"port: 99999\n",
		"default_language: klingon\n",
	}
	for _, body := range cases {
		path := filepath.Join(t.TempDir(), "gls.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("config %q accepted", body)
		}
	}
}
