package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 54, c.DeckSize())
	assert.Equal(t, 3, c.PlayerCount)
	assert.Equal(t, 9, c.HandSize)
	assert.Equal(t, 3, c.RoundLimit)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"one player":      func(c *Config) { c.PlayerCount = 1 },
		"empty hand":      func(c *Config) { c.HandSize = 0 },
		"two digit ranks": func(c *Config) { c.RankCount = 10 },
		"no category":     func(c *Config) { c.CategoryCount = 0 },
		"too many cat":    func(c *Config) { c.CategoryCount = 7 },
		"deck too small":  func(c *Config) { c.HandSize = 19 },
		"no rounds":       func(c *Config) { c.RoundLimit = 0 },
		"negative delay":  func(c *Config) { c.DisposeDelay = -time.Second },
		"no name length":  func(c *Config) { c.MaxNameLength = 0 },
	}
	for name, mutate := range cases {
		c := DefaultConfig()
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}
