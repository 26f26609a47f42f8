package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validKubernetesConfig() StewardConfig {
	cfg := GetDefaultConfig()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*StewardConfig)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(*StewardConfig) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *StewardConfig) { c.Mode = "hybrid" },
			wantErr: "unknown mode",
		},
		{
			name: "filesystem mode without manifest dir",
			mutate: func(c *StewardConfig) {
				c.Mode = ModeFilesystem
				c.ManifestDir = ""
			},
			wantErr: "manifestDir",
		},
		{
			name: "filesystem mode with manifest dir",
			mutate: func(c *StewardConfig) {
				c.Mode = ModeFilesystem
				c.ManifestDir = "./manifests"
			},
		},
		{
			name:    "kubernetes mode without lease name",
			mutate:  func(c *StewardConfig) { c.Lease.Name = "" },
			wantErr: "lease.name",
		},
		{
			name:    "kubernetes mode without lease namespace",
			mutate:  func(c *StewardConfig) { c.Lease.Namespace = "" },
			wantErr: "lease.namespace",
		},
		{
			name:    "negative idle interval",
			mutate:  func(c *StewardConfig) { c.IdleInterval = Duration{-time.Second} },
			wantErr: "idleInterval",
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *StewardConfig) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validKubernetesConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Duration{90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte("2m"), &d))
	assert.Equal(t, 2*time.Minute, d.Duration)

	assert.Error(t, yaml.Unmarshal([]byte("never"), &d))
}
