package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	defaultServer = "http://127.0.0.1:8080"
	defaultSocket = "/tmp/eurekastreams.sock"

	cliConfigEnv = "EUREKA_CLI_CONFIG"
)

// cliConfig is what `auth login` stores between CLI runs.
type cliConfig struct {
	Transport string `json:"transport"`
	Server    string `json:"server"`
	Socket    string `json:"socket"`
	Token     string `json:"token"`
}

func (c cliConfig) withDefaults() cliConfig {
	if c.Transport == "" {
		c.Transport = transportSocket
	}
	if c.Server == "" {
		c.Server = defaultServer
	}
	if c.Socket == "" {
		c.Socket = defaultSocket
	}
	return c
}

// cliConfigPath honours EUREKA_CLI_CONFIG before falling back to ~/.eurekastreams/config.json.
func cliConfigPath() (string, error) {
	if path := os.Getenv(cliConfigEnv); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".eurekastreams", "config.json"), nil
}

func loadCLIConfig() (cliConfig, error) {
	path, err := cliConfigPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cliConfig{}.withDefaults(), nil
	}
	if err != nil {
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("read %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func saveCLIConfig(cfg cliConfig) error {
	path, err := cliConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// connect loads the stored config and opens its transport.
func connect() (transport, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	return newTransport(cfg)
}
