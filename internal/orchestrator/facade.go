// Package orchestrator implements the Orchestrator Facade (C6): the
// single entry point the BLE layer calls. It serializes its apply,
// disconnect and update calls through a single worker queue and owns
// the persistent audio topology across calls, the way the teacher's
// daemon struct owns its activeDevice across IPC requests.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/executor"
	"github.com/speakerhub/orchestrator/internal/inventory"
	"github.com/speakerhub/orchestrator/internal/model"
	"github.com/speakerhub/orchestrator/internal/orcherr"
	"github.com/speakerhub/orchestrator/internal/planner"
)

// BluetoothSource is the union of capabilities the facade needs from
// the Bluetooth Control Adapter: inventory for C3 plus the full
// executor.BluetoothController surface for C5.
type BluetoothSource interface {
	inventory.BluetoothSource
	executor.BluetoothController
}

// Facade is the single entry point invoked by the BLE layer.
type Facade struct {
	bt  BluetoothSource
	aud executor.AudioController
	log *logrus.Logger

	reservedController model.MAC

	mu       sync.Mutex
	topology *audio.Topology
	queue    *queue
}

// New builds a Facade. reservedController is the MAC of the radio
// dedicated to the BLE control channel; every controller whose MAC
// equals it is left out of the pool and never chosen for speakers.
// The value is compared as given: an hciN name matches no controller.
func New(bt BluetoothSource, aud executor.AudioController, log *logrus.Logger, reservedController model.MAC) *Facade {
	f := &Facade{
		bt:                 bt,
		aud:                aud,
		log:                log,
		reservedController: reservedController,
		topology:           audio.NewTopology(),
		queue:              newQueue(),
	}
	return f
}

// ApplyConfiguration runs C3 (snapshot) -> C4 (plan) -> C5 (execute)
// for config and returns the structured Result. Concurrent calls are
// queued, never interleaved (spec §5); ctx's deadline, if any, can
// abort while this call is still waiting in the queue.
func (f *Facade) ApplyConfiguration(ctx context.Context, config model.Configuration) (*model.Result, error) {
	if len(config.Targets) == 0 {
		return nil, orcherr.ErrConfigEmpty
	}
	return f.queue.submit(ctx, func() (*model.Result, error) {
		return f.applyLocked(config)
	})
}

// DisconnectConfiguration walks all controllers, disconnects every
// member of config, and unloads the loopbacks and null-sink this
// orchestrator owns.
func (f *Facade) DisconnectConfiguration(ctx context.Context, config model.Configuration) (*model.Result, error) {
	return f.queue.submit(ctx, func() (*model.Result, error) {
		return f.disconnectLocked(config)
	})
}

// UpdateTarget applies a new latency for an already-connected target
// by reloading its loopback; volume is not handled here. See spec §9:
// this briefly drops audio for the affected speaker, by design.
func (f *Facade) UpdateTarget(ctx context.Context, mac model.MAC, latencyMs int) error {
	_, err := f.queue.submit(ctx, func() (*model.Result, error) {
		ex := executor.New(f.bt, f.aud, f.log)
		if err := ex.UpdateLoopback(string(mac), latencyMs, f.topology); err != nil {
			return nil, err
		}
		return &model.Result{}, nil
	})
	return err
}

// Status reports the topology this orchestrator currently owns,
// without touching the bus — a cheap read for a driver that wants to
// know what's already wired before deciding to call Apply again.
func (f *Facade) Status() *model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := &model.Result{Loopbacks: f.topology.Snapshot()}
	if id, ok := f.topology.NullSinkModuleID(); ok {
		result.VirtualSink = model.VirtualSinkInfo{Present: true, ModuleID: &id}
	}
	return result
}

func (f *Facade) applyLocked(config model.Configuration) (*model.Result, error) {
	log := f.log.WithFields(logrus.Fields{"configId": config.ConfigID, "configName": config.ConfigName})
	log.Info("applying configuration")

	controllers, err := f.bt.ListControllers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orcherr.ErrFatal, err)
	}
	pool := excludeReserved(controllers, f.reservedController)
	if len(pool) == 0 {
		return nil, orcherr.ErrNoControllers
	}

	snap, err := inventory.Build(f.bt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orcherr.ErrFatal, err)
	}

	gp := planner.Plan(config.Targets, snap, pool)
	applyTargetSettings(gp, config.Targets)

	ex := executor.New(f.bt, f.aud, f.log)
	result := ex.Run(gp, f.topology)

	log.WithField("entries", len(result.Entries)).Info("apply complete")

	for _, entry := range result.Entries {
		if entry.Status == model.StatusAudioDegraded {
			return result, orcherr.ErrAudioUnavailable
		}
	}
	return result, nil
}

func (f *Facade) disconnectLocked(config model.Configuration) (*model.Result, error) {
	log := f.log.WithFields(logrus.Fields{"configId": config.ConfigID, "configName": config.ConfigName})
	log.Info("disconnecting configuration")

	controllers, err := f.bt.ListControllers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", orcherr.ErrFatal, err)
	}
	pool := excludeReserved(controllers, f.reservedController)

	result := &model.Result{Entries: make(map[model.MAC]model.ResultEntry, len(config.Targets))}
	for _, t := range config.Targets {
		for _, ctrl := range pool {
			info, err := f.bt.DeviceInfo(ctrl.MAC, string(t.MAC))
			if err != nil || !info.Connected {
				continue
			}
			if err := f.bt.Disconnect(ctrl.MAC, string(t.MAC)); err != nil {
				log.WithField("mac", t.MAC).WithField("controller", ctrl.MAC).WithError(err).Warn("disconnect failed")
			}
		}
		result.Entries[t.MAC] = model.ResultEntry{Name: t.Name, Status: model.StatusSkipped}

		sinkName := audio.SinkName(string(t.MAC))
		if id, ok := f.topology.Loopback(sinkName); ok {
			if err := f.aud.UnloadModule(id); err != nil {
				log.WithField("sink", sinkName).WithError(err).Warn("unload loopback failed")
			}
			f.topology.RemoveLoopback(sinkName)
		}
	}

	if id, ok := f.topology.NullSinkModuleID(); ok {
		if err := f.aud.UnloadModule(id); err != nil {
			log.WithError(err).Warn("unload null-sink failed")
		}
		f.topology.ClearNullSink()
	}

	result.VirtualSink = model.VirtualSinkInfo{Present: false}
	result.Loopbacks = f.topology.Snapshot()
	return result, nil
}

func excludeReserved(controllers []model.Controller, reserved model.MAC) []model.Controller {
	out := make([]model.Controller, 0, len(controllers))
	for _, c := range controllers {
		if c.MAC == reserved {
			continue
		}
		out = append(out, c)
	}
	return out
}

// applyTargetSettings folds each target's LatencyMs (not otherwise
// part of the Gameplan decision) back onto its entry so the
// executor's Phase C can read the configured loopback latency.
func applyTargetSettings(gp *model.Gameplan, targets []model.Target) {
	byMAC := make(map[model.MAC]model.Target, len(targets))
	for _, t := range targets {
		byMAC[t.MAC] = t
	}
	for mac, entry := range gp.Entries {
		if t, ok := byMAC[mac]; ok {
			entry.Role = t.EffectiveRole()
			entry.LatencyMs = t.LatencyMs
			gp.Entries[mac] = entry
		}
	}
}
