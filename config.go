// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before they're
// mapped onto config keys: UPTIME_CHECKS_MAX sets checks.max
const envPrefix = "UPTIME_"

type Config struct {
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`

	Admin struct {
		Addr string `koanf:"addr"`
	} `koanf:"admin"`

	Storage struct {
		// Driver is either "buntdb" or "sqlite"
		Driver string `koanf:"driver"`
		Path   string `koanf:"path"`
	} `koanf:"storage"`

	Checks struct {
		// Max is the most checks one account can own.
		Max int `koanf:"max"`
	} `koanf:"checks"`

	Tokens struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"tokens"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":3000"
	cfg.Admin.Addr = ":9090"
	cfg.Storage.Driver = "buntdb"
	cfg.Storage.Path = "uptime.db"
	cfg.Checks.Max = 5
	cfg.Tokens.TTL = time.Hour
	return cfg
}

// loadConfig reads the defaults, then the YAML file at path (if any),
// then UPTIME_ environment variables.
func loadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %v", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %v", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Storage.Driver {
	case "buntdb", "sqlite":
	default:
		return fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("missing storage.path")
	}
	if cfg.Checks.Max <= 0 {
		return fmt.Errorf("checks.max must be positive, got %d", cfg.Checks.Max)
	}
	if cfg.Tokens.TTL <= 0 {
		return fmt.Errorf("tokens.ttl must be positive, got %v", cfg.Tokens.TTL)
	}
	return nil
}
