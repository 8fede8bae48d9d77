package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainConfigDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(t.TempDir())
	require.NoError(t, err, "missing config file falls back to defaults")

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8, cfg.TTLDefault)
	assert.Equal(t, 120, cfg.SeenTTLSec)
	assert.Equal(t, 5, cfg.SweepIntervalSec)
	assert.Equal(t, 10, cfg.HeartbeatIntervalSec)
}

func TestLoadMainConfigFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "config"), 0755))
	yml := []byte("port: 9001\npeers:\n  - 127.0.0.1:9002\n  - 127.0.0.1:9003\nttl_default: 16\n")
	require.NoError(t, os.WriteFile(filepath.Join(base, "config", "mesh.yml"), yml, 0644))

	cfg, err := LoadMainConfig(base)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, []string{"127.0.0.1:9002", "127.0.0.1:9003"}, cfg.Peers)
	assert.Equal(t, 16, cfg.TTLDefault)
	assert.Equal(t, 120, cfg.SeenTTLSec, "unset keys keep their defaults")
}

func TestLoadMainConfigRejectsBadYAML(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "config"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "config", "mesh.yml"), []byte("port: [9001"), 0644))

	_, err := LoadMainConfig(base)
	assert.Error(t, err)
}

func validConfig() *MainConfig {
	return &MainConfig{
		Host:             "127.0.0.1",
		Port:             9001,
		Peers:            []string{"127.0.0.1:9002"},
		TTLDefault:       8,
		SeenTTLSec:       120,
		SweepIntervalSec: 5,
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsMissingPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedPeer(t *testing.T) {
	cfg := validConfig()
	cfg.Peers = []string{"no-port-here"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsSelfPeer(t *testing.T) {
	cfg := validConfig()
	cfg.Peers = []string{"127.0.0.1:9001"}
	assert.Error(t, cfg.Validate())
}

func TestValidateDeduplicatesPeers(t *testing.T) {
	cfg := validConfig()
	cfg.Peers = []string{"127.0.0.1:9002", "127.0.0.1:9003", "127.0.0.1:9002"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"127.0.0.1:9002", "127.0.0.1:9003"}, cfg.Peers)
}

func TestLabel(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "127.0.0.1:9001", cfg.Label())
}
