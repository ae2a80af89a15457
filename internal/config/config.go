// Package config loads a speakerhubd Configuration from a JSON file on
// disk and resolves the reserved BLE controller from the environment,
// the way the teacher's config.go loads its device list from
// XDG_CONFIG_HOME.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/speakerhub/orchestrator/internal/model"
)

// fileSpeaker mirrors one entry of the config file's "speakers" array.
type fileSpeaker struct {
	MAC       string `json:"mac"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Volume    *int   `json:"volume,omitempty"`
	LatencyMs *int   `json:"latencyMs,omitempty"`
}

// fileConfiguration mirrors the on-disk shape named in spec §6.
type fileConfiguration struct {
	ConfigID   string        `json:"configId"`
	ConfigName string        `json:"configName"`
	Speakers   []fileSpeaker `json:"speakers"`
}

// Load reads and parses a Configuration from path.
func Load(path string) (model.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfiguration
	if err := json.Unmarshal(data, &fc); err != nil {
		return model.Configuration{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := model.Configuration{
		ConfigID:   fc.ConfigID,
		ConfigName: fc.ConfigName,
		Targets:    make([]model.Target, 0, len(fc.Speakers)),
	}
	for _, s := range fc.Speakers {
		t := model.Target{
			MAC:       model.MAC(s.MAC),
			Name:      s.Name,
			Role:      model.Role(s.Role),
			Volume:    s.Volume,
			LatencyMs: s.LatencyMs,
		}
		cfg.Targets = append(cfg.Targets, t)
	}
	return cfg, nil
}

// ReservedControllerEnv is the environment variable holding the MAC of
// the controller dedicated to the BLE control channel and never chosen
// for speaker audio. The value is passed on unchanged; an hciN name is
// not resolved to a MAC.
const ReservedControllerEnv = "SPEAKERHUB_RESERVED_CONTROLLER"

// ReservedController reads ReservedControllerEnv, returning the empty
// MAC when unset (no controller is reserved).
func ReservedController() model.MAC {
	return model.MAC(os.Getenv(ReservedControllerEnv))
}
