package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// configFileNames are tried in order inside the config-path directory.
var configFileNames = []string{"phiremock.yaml", "phiremock.yml", "phiremock.json"}

// LoadFromDir seeks a configuration file in dir and loads it over the
// defaults. Returns ErrFileNotFound (wrapped) when the directory holds no
// recognized file.
func LoadFromDir(dir string) (*ServerConfig, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return LoadFromFile(path)
		}
	}
	return nil, fmt.Errorf("%w: no %s in %s", ErrFileNotFound, strings.Join(configFileNames, "/"), dir)
}

// LoadFromFile reads a ServerConfig from a JSON or YAML file. The format is
// detected from the file extension (.yaml/.yml for YAML, otherwise JSON).
// Unknown keys are rejected so typos fail loudly at startup.
func LoadFromFile(path string) (*ServerConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w in %s: %v", ErrInvalidYAML, path, err)
		}
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w in %s: %v", ErrInvalidJSON, path, err)
	}
	return cfg, nil
}
