package executor

import (
	"strings"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/model"
)

const moduleSuspendOnIdle = "module-suspend-on-idle"

// phaseC reconciles the audio topology against the Bluetooth outcomes
// of Phase B. It happens strictly after Bluetooth operations: a
// loopback is never attempted before the speaker's sink has appeared
// (spec §4.5 Phase C, §5). It returns, per target MAC, whether that
// target ended up Bluetooth-connected but audio-degraded.
func (e *Executor) phaseC(gp *model.Gameplan, states map[model.MAC]TargetState, topology *audio.Topology, result *model.Result) map[model.MAC]bool {
	degraded := make(map[model.MAC]bool)

	if err := e.aud.EnsureRunning(0); err != nil {
		e.log.WithError(err).Warn("audio server unavailable, skipping topology reconcile")
		for _, mac := range gp.Order {
			if states[mac] == StateConnected {
				degraded[mac] = true
			}
		}
		result.VirtualSink = model.VirtualSinkInfo{Present: false}
		return degraded
	}

	e.ensureNullSink(topology)

	for _, mac := range gp.Order {
		entry := gp.Entries[mac]
		if states[mac] != StateConnected {
			continue
		}
		if entry.Role == model.RoleSource {
			continue
		}
		if entry.RecommendedController == "" {
			continue
		}
		if !e.ensureLoopback(entry, topology, result) {
			degraded[mac] = true
		}
	}

	e.unsuspendAllSinks()
	e.unloadIdleSuspendModules()

	if id, ok := topology.NullSinkModuleID(); ok {
		result.VirtualSink = model.VirtualSinkInfo{Present: true, ModuleID: &id}
	}
	result.Loopbacks = topology.Snapshot()

	return degraded
}

func (e *Executor) ensureNullSink(topology *audio.Topology) {
	if _, ok := topology.NullSinkModuleID(); ok {
		return
	}

	mods, err := e.aud.ListModules()
	if err != nil {
		e.log.WithError(err).Warn("list modules failed while checking null-sink")
		return
	}
	for _, m := range mods {
		if m.Name == "module-null-sink" && strings.Contains(m.ArgStr, "sink_name="+audio.VirtualSinkName) {
			topology.SetNullSinkModuleID(m.ID)
			return
		}
	}

	id, err := e.aud.LoadNullSink(audio.VirtualSinkName)
	if err != nil {
		e.log.WithError(err).Error("load null-sink failed")
		return
	}
	topology.SetNullSinkModuleID(id)
}

func (e *Executor) ensureLoopback(entry model.GameplanEntry, topology *audio.Topology, result *model.Result) bool {
	sinkName := audio.SinkName(string(entry.TargetMAC))
	if _, ok := topology.Loopback(sinkName); ok {
		return true
	}

	if !e.sinkPresent(sinkName) {
		e.log.WithField("sink", sinkName).Warn("speaker sink not yet visible, skipping loopback this round")
		e.setReason(result, entry.TargetMAC, "audio-degraded: speaker sink not yet visible")
		return false
	}

	id, attempts, err := e.aud.LoadLoopback(audio.VirtualSinkName+".monitor", sinkName, entry.EffectiveLatencyMs())
	if err != nil {
		e.log.WithError(err).WithField("sink", sinkName).WithField("attempts", attempts).Error("load loopback failed")
		e.setReason(result, entry.TargetMAC, "audio-degraded: "+err.Error())
		res := result.Entries[entry.TargetMAC]
		res.Retries = attempts - 1
		result.Entries[entry.TargetMAC] = res
		return false
	}

	topology.SetLoopback(sinkName, id)
	res := result.Entries[entry.TargetMAC]
	res.Retries = attempts - 1
	result.Entries[entry.TargetMAC] = res
	return true
}

func (e *Executor) sinkPresent(sinkName string) bool {
	sinks, err := e.aud.ListSinks()
	if err != nil {
		return false
	}
	for _, s := range sinks {
		if s.Name == sinkName {
			return true
		}
	}
	return false
}

func (e *Executor) unsuspendAllSinks() {
	sinks, err := e.aud.ListSinks()
	if err != nil {
		e.log.WithError(err).Warn("list sinks failed while unsuspending")
		return
	}
	for _, s := range sinks {
		if err := e.aud.UnsuspendSink(s.Name); err != nil {
			e.log.WithError(err).WithField("sink", s.Name).Warn("unsuspend failed")
		}
	}
}

func (e *Executor) unloadIdleSuspendModules() {
	_, err := e.aud.UnloadAllMatching(func(m audio.ModuleInfo) bool {
		return m.Name == moduleSuspendOnIdle
	})
	if err != nil {
		e.log.WithError(err).Warn("unload module-suspend-on-idle failed")
	}
}
