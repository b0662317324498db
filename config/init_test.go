package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, "8765", cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Database.DSN)
	assert.Equal(t, 1000, cfg.Sync.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.PairingTTL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Server.Address = "0.0.0.0"
		c.Server.HTTPPort = "8765"
		c.Database.Driver = "sqlite"
		c.Sync.BatchSize = 1000
		c.Sync.PairingTTL = 5 * time.Minute
		return c
	}

	assert.NoError(t, validate(base()))

	c := base()
	c.Server.Address = " "
	assert.Error(t, validate(c))

	c = base()
	c.Database.Driver = ""
	assert.Error(t, validate(c))

	c = base()
	c.Sync.BatchSize = 0
	assert.Error(t, validate(c))

	c = base()
	c.Sync.PairingTTL = 0
	assert.Error(t, validate(c))
}
