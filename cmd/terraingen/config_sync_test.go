package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"terraingen/internal/config"
)

func TestWriteConfigFromEnvYAML(t *testing.T) {
	doc := "extents:\n  x: 5\n  y: 5\n  z: 3\nseed: 99\n"
	t.Setenv(configEnvVar, base64.StdEncoding.EncodeToString([]byte(doc)))

	path := filepath.Join(t.TempDir(), "conf", "terrain.yaml")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if !wrote {
		t.Fatalf("expected config to be written")
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Terrain.Seed != 99 || cfg.Extents.X != 5 || cfg.Extents.Z != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Dispatch.BatchSize != 100 {
		t.Fatalf("expected defaults to fill unset fields, got batch size %d", cfg.Dispatch.BatchSize)
	}
}

func TestWriteConfigFromEnvJSONPath(t *testing.T) {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	t.Setenv(configEnvVar, base64.StdEncoding.EncodeToString(data))

	path := filepath.Join(t.TempDir(), "terrain.json")
	if _, err := writeConfigFromEnv(path); err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("load json config: %v", err)
	}
}

func TestWriteConfigFromEnvUnset(t *testing.T) {
	t.Setenv(configEnvVar, "")
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if wrote {
		t.Fatalf("expected nothing to be written")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no config file, stat err=%v", err)
	}
}

func TestWriteConfigFromEnvRequiresPath(t *testing.T) {
	t.Setenv(configEnvVar, base64.StdEncoding.EncodeToString([]byte("seed: 1\n")))
	if _, err := writeConfigFromEnv(""); err == nil {
		t.Fatalf("expected error without a config path")
	}
}

func TestWriteConfigFromEnvRejectsInvalid(t *testing.T) {
	t.Setenv(configEnvVar, base64.StdEncoding.EncodeToString([]byte("extents:\n  x: -1\n")))
	if _, err := writeConfigFromEnv(filepath.Join(t.TempDir(), "terrain.yaml")); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
}
