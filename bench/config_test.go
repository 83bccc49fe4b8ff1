package bench

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_CacheKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"azure", Config{UseAzure: true, Model: "gpt-4.1-mini"}, "azure:gpt-4.1-mini"},
		{"http endpoint", Config{Endpoint: "http://localhost:8000/v1", Model: "qwen3-8b"}, "localhost:8000:qwen3-8b"},
		{"bare host", Config{Endpoint: "inference.internal", Model: "m"}, "inference.internal:m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.CacheKey())
		})
	}
}

func TestConfig_HTTPTimeout(t *testing.T) {
	assert.Equal(t, 90*time.Second, DefaultConfig().HTTPTimeout())
	assert.Equal(t, 1500*time.Millisecond, (&Config{Timeout: 1.5}).HTTPTimeout())
	assert.Equal(t, 90*time.Second, (&Config{Timeout: -1}).HTTPTimeout())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
endpoint: https://example.azure.com
model: gpt-4.1-mini
azure: true
timeout: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, cfg))

	assert.Equal(t, "https://example.azure.com", cfg.Endpoint)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.True(t, cfg.UseAzure)
	assert.Equal(t, 30.0, cfg.Timeout)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg))
}
