package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salesbrain")
	t.Setenv("EMBED_PROVIDER", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := LoadConfig()

	assert.Equal(t, "postgres://localhost/salesbrain", cfg.DatabaseURL)
	assert.Equal(t, 1024, cfg.EmbedDim)
	assert.Equal(t, 5, cfg.MaxToolRounds)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.EnableTagging)
}

func TestLoadConfig_EmbedDimFollowsProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     int
	}{
		{"voyage", 1024},
		{"gemini", 768},
		{"GEMINI", 768},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("EMBED_PROVIDER", tt.provider)
			t.Setenv("EMBED_DIM", "")

			assert.Equal(t, tt.want, LoadConfig().EmbedDim)
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/x")
	t.Setenv("EMBED_PROVIDER", "Gemini")
	t.Setenv("EMBED_DIM", "256")
	t.Setenv("INGEST_WORKERS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ENABLE_TAGGING", "true")

	cfg := LoadConfig()

	assert.Equal(t, "gemini", cfg.EmbedProvider)
	assert.Equal(t, 256, cfg.EmbedDim)
	assert.Equal(t, 4, cfg.IngestWorkers, "invalid ints fall back to the default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.EnableTagging)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL:   "postgres://db/x",
			EmbedProvider: "voyage",
			EmbedDim:      1024,
			IngestWorkers: 2,
			MaxToolRounds: 5,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"unknown provider", func(c *Config) { c.EmbedProvider = "openai" }},
		{"zero dim", func(c *Config) { c.EmbedDim = 0 }},
		{"zero workers", func(c *Config) { c.IngestWorkers = 0 }},
		{"zero rounds", func(c *Config) { c.MaxToolRounds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
