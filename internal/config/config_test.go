package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakerhub/orchestrator/internal/model"
)

func TestLoadParsesSpeakersAndSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")
	body := `{
		"configId": "cfg-1",
		"configName": "living room",
		"speakers": [
			{"mac": "AA:BB:CC:DD:EE:01", "name": "Left", "latencyMs": 80},
			{"mac": "AA:BB:CC:DD:EE:02", "name": "Phone", "role": "source"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cfg-1", cfg.ConfigID)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, model.MAC("AA:BB:CC:DD:EE:01"), cfg.Targets[0].MAC)
	require.NotNil(t, cfg.Targets[0].LatencyMs)
	assert.Equal(t, 80, *cfg.Targets[0].LatencyMs)
	assert.Equal(t, model.RoleSource, cfg.Targets[1].Role)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/devices.json")
	assert.Error(t, err)
}

func TestReservedControllerEnv(t *testing.T) {
	t.Setenv(ReservedControllerEnv, "AA:BB:CC:DD:EE:FF")
	assert.Equal(t, model.MAC("AA:BB:CC:DD:EE:FF"), ReservedController())
}
