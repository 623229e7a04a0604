package internal

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io/fs"
	"os"
	"path/filepath"
)

const ConfigFileName = "ngrok.yml"

// TunnelConfig is passed to the tunnel opener in place of the provider's
// process-wide default configuration.
type TunnelConfig struct {
	ConfigPath string
	AuthToken  string
}

// FileConfig holds the fields of an ngrok agent configuration file that
// apply to an embedded tunnel. Both the v2 layout (top level authtoken) and
// the v3 layout (agent.authtoken) are understood.
type FileConfig struct {
	Version    string `yaml:"version"`
	AuthToken  string `yaml:"authtoken"`
	Region     string `yaml:"region"`
	ServerAddr string `yaml:"server_addr"`
	Agent      struct {
		AuthToken  string `yaml:"authtoken"`
		Region     string `yaml:"region"`
		ServerAddr string `yaml:"server_addr"`
	} `yaml:"agent"`
}

func (c FileConfig) Token() string {
	if c.Agent.AuthToken != "" {
		return c.Agent.AuthToken
	}
	return c.AuthToken
}

func (c FileConfig) Server() string {
	if c.Agent.ServerAddr != "" {
		return c.Agent.ServerAddr
	}
	return c.ServerAddr
}

func (c FileConfig) RegionName() string {
	if c.Agent.Region != "" {
		return c.Agent.Region
	}
	return c.Region
}

// LoadTunnelConfig uses ngrok.yml from dir when it exists and takes the auth
// token from the ngrok_auth environment variable when it is set.
func LoadTunnelConfig(dir string, getenv func(string) string) (TunnelConfig, error) {
	var cfg TunnelConfig

	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		cfg.ConfigPath = path
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("error checking for %s: %w", path, err)
	}

	if token := getenv("ngrok_auth"); token != "" {
		cfg.AuthToken = token
	}

	return cfg, nil
}

func ReadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig

	bs, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(bs, &fc); err != nil {
		return fc, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return fc, nil
}
