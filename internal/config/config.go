package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type MainConfig struct {
	Host                 string   `yaml:"host" validate:"required"`
	Port                 int      `yaml:"port" validate:"required,min=1,max=65535"`
	Peers                []string `yaml:"peers" validate:"dive,hostname_port"`
	TTLDefault           int      `yaml:"ttl_default" validate:"min=1"`
	SeenTTLSec           int      `yaml:"seen_ttl_sec" validate:"min=1"`
	SweepIntervalSec     int      `yaml:"sweep_interval_sec" validate:"min=1"`
	HeartbeatIntervalSec int      `yaml:"heartbeat_interval_sec" validate:"min=0"`
	RateLimitPerSec      int64    `yaml:"rate_limit_per_sec" validate:"min=0"`
	NodeName             string   `yaml:"node_name"`
	LogPath              string   `yaml:"log_path"`
}

// LoadMainConfig reads config/mesh.yml under basePath and overlays it on the
// defaults. A missing file is fine (everything can come from flags); a file
// that exists but does not parse is an error.
func LoadMainConfig(basePath string) (*MainConfig, error) {
	cfg := MainConfig{
		Host:                 "127.0.0.1",
		TTLDefault:           8,
		SeenTTLSec:           120,
		SweepIntervalSec:     5,
		HeartbeatIntervalSec: 10,
	}

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "mesh.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return &cfg, nil
}

// Label returns the canonical host:port string of the local endpoint. This
// is both the src field on originated messages and the identity other nodes
// address with @host:port.
func (cfg *MainConfig) Label() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Validate checks the whole configuration before any socket is bound.
// Struct-level rules run through validator; on top of that the peer list is
// deduplicated and must not contain the node itself.
func (cfg *MainConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	local := cfg.Label()
	seen := make(map[string]bool, len(cfg.Peers))
	peers := cfg.Peers[:0]
	for _, p := range cfg.Peers {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(p); err != nil {
			return fmt.Errorf("invalid peer address %q: %w", p, err)
		}
		if p == local {
			return fmt.Errorf("cannot add self (%s) as a peer", p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		peers = append(peers, p)
	}
	cfg.Peers = peers

	return nil
}
