package executor

import (
	"fmt"

	"github.com/speakerhub/orchestrator/internal/audio"
)

// UpdateLoopback applies a new latency to an already-connected
// target's loopback by unloading and reloading the module. This is
// the parameter-poke path named in spec §9: it briefly drops audio for
// the affected speaker, matching the source behavior rather than
// engineering around it with a crossfade or double-buffer.
func (e *Executor) UpdateLoopback(mac string, latencyMs int, topology *audio.Topology) error {
	sinkName := audio.SinkName(mac)

	if id, ok := topology.Loopback(sinkName); ok {
		if err := e.aud.UnloadModule(id); err != nil {
			e.log.WithField("sink", sinkName).WithError(err).Warn("unload before latency update failed, reloading anyway")
		}
		topology.RemoveLoopback(sinkName)
	}

	id, attempts, err := e.aud.LoadLoopback(audio.VirtualSinkName+".monitor", sinkName, latencyMs)
	if err != nil {
		return fmt.Errorf("executor: update loopback for %s after %d attempts: %w", mac, attempts, err)
	}
	topology.SetLoopback(sinkName, id)
	return nil
}
