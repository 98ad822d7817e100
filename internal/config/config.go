// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config provides configuration management for onera-core: the
// deployment knobs governing session lifetime, the chat-key cache, TEE
// attestation, the Noise handshake, and the inference transport.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for onera-core.
type Config struct {
	Environment string            `yaml:"environment" json:"environment"`
	Session     *SessionConfig    `yaml:"session" json:"session"`
	ChatCache   *ChatCacheConfig  `yaml:"chat_cache" json:"chat_cache"`
	Attestation *AttestationConfig `yaml:"attestation" json:"attestation"`
	Handshake   *HandshakeConfig  `yaml:"handshake" json:"handshake"`
	Transport   *TransportConfig  `yaml:"transport" json:"transport"`
	Logging     *LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// SessionConfig controls SecureSession auto-lock timing.
type SessionConfig struct {
	IdleTimeout       time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	BackgroundTimeout time.Duration `yaml:"background_timeout" json:"background_timeout"`
}

// ChatCacheConfig controls the in-memory per-chat symmetric key cache.
type ChatCacheConfig struct {
	Size int           `yaml:"size" json:"size"`
	TTL  time.Duration `yaml:"ttl" json:"ttl"`
}

// AttestationConfig controls remote-attestation verification against the
// TEE inference endpoint.
type AttestationConfig struct {
	FetchTimeout    time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	TrustRootBundle string        `yaml:"trust_root_bundle" json:"trust_root_bundle"`
}

// HandshakeConfig bounds the Noise_NK handshake wall-clock budget.
type HandshakeConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// TransportConfig controls the duplex InferenceChannel transport.
type TransportConfig struct {
	PingInterval time.Duration `yaml:"ping_interval" json:"ping_interval"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics server configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing JSON or YAML by
// the file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) >= 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults fills unset fields with production-sane defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Session == nil {
		cfg.Session = &SessionConfig{}
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 30 * time.Minute
	}
	if cfg.Session.BackgroundTimeout == 0 {
		cfg.Session.BackgroundTimeout = 5 * time.Minute
	}

	if cfg.ChatCache == nil {
		cfg.ChatCache = &ChatCacheConfig{}
	}
	if cfg.ChatCache.Size == 0 {
		cfg.ChatCache.Size = 100
	}
	if cfg.ChatCache.TTL == 0 {
		cfg.ChatCache.TTL = 10 * time.Minute
	}

	if cfg.Attestation == nil {
		cfg.Attestation = &AttestationConfig{}
	}
	if cfg.Attestation.FetchTimeout == 0 {
		cfg.Attestation.FetchTimeout = 10 * time.Second
	}
	if cfg.Attestation.TrustRootBundle == "" {
		cfg.Attestation.TrustRootBundle = "trust-roots.pem"
	}

	if cfg.Handshake == nil {
		cfg.Handshake = &HandshakeConfig{}
	}
	if cfg.Handshake.Timeout == 0 {
		cfg.Handshake.Timeout = 30 * time.Second
	}

	if cfg.Transport == nil {
		cfg.Transport = &TransportConfig{}
	}
	if cfg.Transport.PingInterval == 0 {
		cfg.Transport.PingInterval = 30 * time.Second
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}
