package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"terraingen/internal/config"
)

const configEnvVar = "TERRAIN_CONFIG_YAML_B64"

// writeConfigFromEnv materialises a base64 YAML configuration passed through
// the environment at cfgPath, so that Load picks it up.
func writeConfigFromEnv(cfgPath string) (bool, error) {
	payload := os.Getenv(configEnvVar)
	if payload == "" {
		return false, nil
	}
	if cfgPath == "" {
		return false, errors.New(configEnvVar + " is set but no -config path supplied")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return false, fmt.Errorf("decode config yaml: %w", err)
	}
	cfg := config.Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("validate config: %w", err)
	}

	dir := filepath.Dir(cfgPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create config directory: %w", err)
		}
	}
	var out []byte
	if strings.EqualFold(filepath.Ext(cfgPath), ".json") {
		out, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		out, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}
