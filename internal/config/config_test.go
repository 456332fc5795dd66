// ABOUTME: Tests for configuration loading: env expansion, durations, defaults, validation.
// ABOUTME: Writes throwaway YAML files per test case.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatsg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
server:
  http_addr: ":8080"
database:
  path: "/tmp/chatsg-test/chatsg.db"
dispatch:
  confidence_threshold: 0.3
  hybrid_fallback: true
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
cache:
  capacity: 4
  idle_timeout: "30m"
  sweep_interval: "10m"
session:
  request_timeout: "90s"
logging:
  level: "info"
  format: "text"
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "analytical", cfg.Dispatch.DefaultAgentType)
	assert.True(t, cfg.Dispatch.HybridFallback)
	assert.Equal(t, 4, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.IdleTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 90*time.Second, cfg.Session.RequestTimeout)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CHATSG_TEST_ADDR", ":9090")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: "${CHATSG_TEST_ADDR}"
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
`))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.IdleTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.Session.RequestTimeout)
	assert.Equal(t, 0.3, cfg.Dispatch.ConfidenceThreshold)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
cache:
  idle_timeout: "not-a-duration"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle_timeout")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http addr",
			content: `
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
`,
			wantErr: "http_addr",
		},
		{
			name: "missing default agent type",
			content: `
server:
  http_addr: ":8080"
dispatch:
  keyword_pack: "agents.toml"
`,
			wantErr: "default_agent_type",
		},
		{
			name: "missing keyword pack",
			content: `
server:
  http_addr: ":8080"
dispatch:
  default_agent_type: "analytical"
`,
			wantErr: "keyword_pack",
		},
		{
			name: "threshold out of range",
			content: `
server:
  http_addr: ":8080"
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
  confidence_threshold: 1.5
`,
			wantErr: "confidence_threshold",
		},
		{
			name: "negative capacity",
			content: `
server:
  http_addr: ":8080"
dispatch:
  default_agent_type: "analytical"
  keyword_pack: "agents.toml"
cache:
  capacity: -2
`,
			wantErr: "capacity",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [broken"))
	assert.Error(t, err)
}
