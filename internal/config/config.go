package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"terraingen/internal/density"
	"terraingen/internal/noise"
)

// Duration wraps time.Duration so configuration files can use human readable
// strings such as "100ms". Numeric values are read as nanoseconds.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string, a number of nanoseconds or null.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar at line %d", value.Line)
	}
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode nanoseconds: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures everything needed for one terrain generation run.
type Config struct {
	Extents  ExtentsConfig  `yaml:"extents" json:"extents"`
	Terrain  TerrainConfig  `yaml:",inline" json:"terrain"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Preview  PreviewConfig  `yaml:"preview" json:"preview"`
}

type ExtentsConfig struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

type TerrainConfig struct {
	Seed      uint64          `yaml:"seed" json:"seed"`
	Workers   int             `yaml:"workers" json:"workers"` // 0 picks GOMAXPROCS*2
	Noise     NoiseConfig     `yaml:"noise" json:"noise"`
	Density   DensityConfig   `yaml:"density" json:"density"`
	HeightMap HeightMapConfig `yaml:"height_map" json:"heightMap"`
	Materials MaterialsConfig `yaml:"materials" json:"materials"`
}

type NoiseConfig struct {
	Kind               noise.Kind `yaml:"kind" json:"kind"`
	ShufflePermutation bool       `yaml:"shuffle_permutation" json:"shufflePermutation"`
}

type DensityConfig struct {
	Mode      density.Mode    `yaml:"mode" json:"mode"`
	Threshold float64         `yaml:"threshold" json:"threshold"`
	Octaves   int             `yaml:"octaves" json:"octaves"`
	Summation noise.Summation `yaml:"summation" json:"summation"`
}

type HeightMapConfig struct {
	StretchMin float64 `yaml:"stretch_min" json:"stretchMin"`
	StretchMax float64 `yaml:"stretch_max" json:"stretchMax"`
	BlurRadius int     `yaml:"blur_radius" json:"blurRadius"` // odd, 0 disables the blur
}

type MaterialsConfig struct {
	Thresholds []float64 `yaml:"thresholds" json:"thresholds"`
	Names      []string  `yaml:"names" json:"names"`
}

// Sink names accepted by dispatch.sink.
const (
	SinkNone      = "none"
	SinkCSV       = "csv"
	SinkSQLite    = "sqlite"
	SinkWebSocket = "websocket"
)

type DispatchConfig struct {
	Sink       string   `yaml:"sink" json:"sink"`
	BatchSize  int      `yaml:"batch_size" json:"batchSize"`
	Delay      Duration `yaml:"delay" json:"delay"` // pause before every batch
	Path       string   `yaml:"path" json:"path"`
	Compress   bool     `yaml:"compress" json:"compress"`
	URL        string   `yaml:"url" json:"url"`
	AckTimeout Duration `yaml:"ack_timeout" json:"ackTimeout"`
	RunID      string   `yaml:"run_id" json:"runId"`
}

type PreviewConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Load reads a YAML (or .json) configuration on top of the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Extents: ExtentsConfig{X: 64, Y: 64, Z: 32},
		Terrain: TerrainConfig{
			Seed: 1,
			Noise: NoiseConfig{
				Kind: noise.KindGrid,
			},
			Density: DensityConfig{
				Mode:      density.ModeHeightMap,
				Threshold: 0.05,
				Octaves:   5,
				Summation: noise.SumPlain,
			},
			HeightMap: HeightMapConfig{
				StretchMin: 0,
				StretchMax: 0.9,
				BlurRadius: 5,
			},
			Materials: MaterialsConfig{
				Thresholds: []float64{0.4, 0.6, 0.8},
				Names:      []string{"dirt", "grass", "rock", "snow"},
			},
		},
		Dispatch: DispatchConfig{
			Sink:       SinkNone,
			BatchSize:  100,
			Delay:      Duration(100 * time.Millisecond),
			AckTimeout: Duration(5 * time.Second),
		},
	}
}

func (c *Config) Validate() error {
	if c.Extents.X <= 0 || c.Extents.Y <= 0 || c.Extents.Z <= 0 {
		return errors.New("extents must be positive")
	}
	if err := c.Terrain.Validate(); err != nil {
		return err
	}
	return c.Dispatch.Validate()
}

func (t *TerrainConfig) Validate() error {
	if t.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	if _, err := noise.ParseKind(string(t.Noise.Kind)); err != nil {
		return fmt.Errorf("noise.kind: %w", err)
	}
	if _, err := density.ParseMode(string(t.Density.Mode)); err != nil {
		return fmt.Errorf("density.mode: %w", err)
	}
	if _, err := noise.ParseSummation(string(t.Density.Summation)); err != nil {
		return fmt.Errorf("density.summation: %w", err)
	}
	if math.IsNaN(t.Density.Threshold) || math.IsInf(t.Density.Threshold, 0) {
		return errors.New("density.threshold must be finite")
	}
	if t.Density.Octaves <= 0 {
		return errors.New("density.octaves must be positive")
	}
	if t.HeightMap.StretchMax <= t.HeightMap.StretchMin {
		return errors.New("height_map.stretch_max must exceed stretch_min")
	}
	if t.HeightMap.BlurRadius < 0 {
		return errors.New("height_map.blur_radius cannot be negative")
	}
	if t.HeightMap.BlurRadius > 0 && t.HeightMap.BlurRadius%2 == 0 {
		return errors.New("height_map.blur_radius must be odd")
	}
	return validateMaterials(t.Materials)
}

func validateMaterials(m MaterialsConfig) error {
	if len(m.Names) == 0 {
		return errors.New("materials.names cannot be empty")
	}
	if len(m.Names) != len(m.Thresholds)+1 {
		return fmt.Errorf("materials.names needs %d entries for %d thresholds", len(m.Thresholds)+1, len(m.Thresholds))
	}
	for i, name := range m.Names {
		if name == "" {
			return fmt.Errorf("materials.names[%d] must be set", i)
		}
	}
	for i := 1; i < len(m.Thresholds); i++ {
		if m.Thresholds[i] <= m.Thresholds[i-1] {
			return fmt.Errorf("materials.thresholds[%d] must be greater than the previous threshold", i)
		}
	}
	return nil
}

func (d *DispatchConfig) Validate() error {
	if d.BatchSize <= 0 {
		return errors.New("dispatch.batch_size must be positive")
	}
	if d.Delay < 0 {
		return errors.New("dispatch.delay cannot be negative")
	}
	switch d.Sink {
	case "", SinkNone:
	case SinkCSV, SinkSQLite:
		if d.Path == "" {
			return fmt.Errorf("dispatch.path must be set for the %s sink", d.Sink)
		}
	case SinkWebSocket:
		if d.URL == "" {
			return errors.New("dispatch.url must be set for the websocket sink")
		}
		if d.AckTimeout <= 0 {
			return errors.New("dispatch.ack_timeout must be positive")
		}
	default:
		return fmt.Errorf("dispatch.sink %q is not one of none, csv, sqlite, websocket", d.Sink)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
