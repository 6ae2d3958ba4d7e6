package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "non positive extents",
			mutate: func(cfg *Config) {
				cfg.Extents.Z = 0
			},
			wantErr: "extents must be positive",
		},
		{
			name: "negative workers",
			mutate: func(cfg *Config) {
				cfg.Terrain.Workers = -1
			},
			wantErr: "workers cannot be negative",
		},
		{
			name: "unknown noise kind",
			mutate: func(cfg *Config) {
				cfg.Terrain.Noise.Kind = "simplex"
			},
			wantErr: `noise.kind: unknown noise kind "simplex"`,
		},
		{
			name: "non positive octaves",
			mutate: func(cfg *Config) {
				cfg.Terrain.Density.Octaves = 0
			},
			wantErr: "density.octaves must be positive",
		},
		{
			name: "inverted stretch range",
			mutate: func(cfg *Config) {
				cfg.Terrain.HeightMap.StretchMax = -1
			},
			wantErr: "height_map.stretch_max must exceed stretch_min",
		},
		{
			name: "even blur radius",
			mutate: func(cfg *Config) {
				cfg.Terrain.HeightMap.BlurRadius = 4
			},
			wantErr: "height_map.blur_radius must be odd",
		},
		{
			name: "material count mismatch",
			mutate: func(cfg *Config) {
				cfg.Terrain.Materials.Names = []string{"dirt", "snow"}
			},
			wantErr: "materials.names needs 4 entries for 3 thresholds",
		},
		{
			name: "unordered thresholds",
			mutate: func(cfg *Config) {
				cfg.Terrain.Materials.Thresholds = []float64{0.4, 0.4, 0.8}
			},
			wantErr: "materials.thresholds[1] must be greater than the previous threshold",
		},
		{
			name: "non positive batch size",
			mutate: func(cfg *Config) {
				cfg.Dispatch.BatchSize = 0
			},
			wantErr: "dispatch.batch_size must be positive",
		},
		{
			name: "csv sink without path",
			mutate: func(cfg *Config) {
				cfg.Dispatch.Sink = SinkCSV
			},
			wantErr: "dispatch.path must be set for the csv sink",
		},
		{
			name: "websocket sink without url",
			mutate: func(cfg *Config) {
				cfg.Dispatch.Sink = SinkWebSocket
			},
			wantErr: "dispatch.url must be set for the websocket sink",
		},
		{
			name: "unknown sink",
			mutate: func(cfg *Config) {
				cfg.Dispatch.Sink = "kafka"
			},
			wantErr: `dispatch.sink "kafka" is not one of none, csv, sqlite, websocket`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	doc := `
extents:
  x: 8
  y: 6
  z: 4
seed: 42
noise:
  kind: classic
density:
  mode: procedural
  summation: damped
dispatch:
  sink: csv
  path: out/voxels.csv
  delay: 250ms
  ack_timeout: 1000000
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	want := Default()
	want.Extents = ExtentsConfig{X: 8, Y: 6, Z: 4}
	want.Terrain.Seed = 42
	want.Terrain.Noise.Kind = "classic"
	want.Terrain.Density.Mode = "procedural"
	want.Terrain.Density.Summation = "damped"
	want.Dispatch.Sink = SinkCSV
	want.Dispatch.Path = "out/voxels.csv"
	want.Dispatch.Delay = Duration(250 * time.Millisecond)
	want.Dispatch.AckTimeout = Duration(time.Millisecond)
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.json")

	cfg := Default()
	cfg.Preview.Path = "preview/heights.png"
	cfg.Dispatch.Delay = Duration(20 * time.Millisecond)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte("extents:\n  x: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: extents must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "terrain.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write default: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var d Duration
	if err := d.UnmarshalJSON([]byte(`"soon"`)); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := d.UnmarshalJSON([]byte(`"1.5s"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Duration() != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", d.Duration())
	}
}
