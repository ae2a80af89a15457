// Package executor implements the Executor (C5): it drives a Gameplan
// through the Bluetooth and Audio Control Adapters in the fixed
// phases of spec §4.5, tolerating per-target failures without ever
// blocking the remaining targets.
package executor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/bluez"
	"github.com/speakerhub/orchestrator/internal/model"
)

// These settle windows are declared as variables, not constants, so
// tests can shrink them — they model the real hardware/profile
// negotiation windows named in spec §4.5 Phase B, not values that
// change test outcomes.
var (
	// disconnectSettleDelay is the "sleep briefly" named explicitly in
	// spec §4.5 Phase A — a convergence wait between a disconnect
	// command and the next bus operation, not a workaround sleep.
	disconnectSettleDelay = 300 * time.Millisecond
	// scanSettleDelay is the short discovery window before a connect
	// attempt on an already-paired device.
	scanSettleDelay = 2 * time.Second
	// pairScanWindow is the discovery window before a fresh pair.
	pairScanWindow = 5 * time.Second
	// postConnectSettleDelay lets a fresh A2DP profile negotiate
	// before Phase C looks for its sink.
	postConnectSettleDelay = 3 * time.Second
)

// Executor drives one Gameplan to completion.
type Executor struct {
	bt  BluetoothController
	aud AudioController
	log *logrus.Logger
}

// New builds an Executor over the given adapters.
func New(bt BluetoothController, aud AudioController, log *logrus.Logger) *Executor {
	return &Executor{bt: bt, aud: aud, log: log}
}

// Run drives gp through Phases A, B and C, mutating topology to
// reflect whatever modules it ends up owning, and returns the
// structured per-target Result.
func (e *Executor) Run(gp *model.Gameplan, topology *audio.Topology) *model.Result {
	result := &model.Result{Entries: make(map[model.MAC]model.ResultEntry, len(gp.Order))}
	states := make(map[model.MAC]TargetState, len(gp.Order))

	e.phaseA(gp, states)
	e.phaseB(gp, states, result)
	audioDegraded := e.phaseC(gp, states, topology, result)

	for _, mac := range gp.Order {
		entry := gp.Entries[mac]
		res := result.Entries[mac]
		res.Name = entry.TargetName
		res.Action = entry.Action
		res.RecommendedController = entry.RecommendedController
		res.Disconnect = entry.Disconnect

		switch states[mac] {
		case StateConnected:
			if audioDegraded[mac] {
				res.Status = model.StatusAudioDegraded
			} else {
				res.Status = model.StatusConnected
			}
		case StateFailed:
			res.Status = model.StatusFailed
		case StateNoController:
			res.Status = model.StatusNoController
		case StateSkipped:
			res.Status = model.StatusSkipped
		default:
			res.Status = model.StatusFailed
			if res.Reason == "" {
				res.Reason = "execution did not reach a terminal state"
			}
		}
		result.Entries[mac] = res
	}

	return result
}

// phaseA breaks every stale attachment named in every entry's
// Disconnect list before any Phase B connect begins. Failures are
// logged and non-fatal (spec §4.5).
func (e *Executor) phaseA(gp *model.Gameplan, states map[model.MAC]TargetState) {
	for _, mac := range gp.Order {
		entry := gp.Entries[mac]
		for _, ctrl := range entry.Disconnect {
			states[mac] = StateDisconnecting
			if err := e.bt.Select(ctrl); err != nil {
				e.log.WithFields(logrus.Fields{"mac": mac, "controller": ctrl, "phase": "A"}).WithError(err).Warn("select failed")
				continue
			}
			if err := e.bt.Disconnect(ctrl, string(mac)); err != nil {
				e.log.WithFields(logrus.Fields{"mac": mac, "controller": ctrl, "phase": "A"}).WithError(err).Warn("disconnect failed")
			}
			time.Sleep(disconnectSettleDelay)
		}
	}
}

// phaseB processes each entry's action in Gameplan iteration order.
func (e *Executor) phaseB(gp *model.Gameplan, states map[model.MAC]TargetState, result *model.Result) {
	for _, mac := range gp.Order {
		entry := gp.Entries[mac]
		log := e.log.WithFields(logrus.Fields{"mac": mac, "controller": entry.RecommendedController, "phase": "B", "action": entry.Action})

		switch entry.Action {
		case model.ActionNone:
			log.Info("already connected, no action")
			states[mac] = StateConnected

		case model.ActionConnectExisting:
			state, reason := e.connectExisting(entry, log)
			states[mac] = state
			if reason != "" {
				e.setReason(result, mac, reason)
			}

		case model.ActionPairAndConnect:
			state, reason := e.pairAndConnect(entry, log)
			states[mac] = state
			if reason != "" {
				e.setReason(result, mac, reason)
			}

		case model.ActionNoFreeController:
			log.Warn("no free controller for target")
			states[mac] = StateNoController
			e.setReason(result, mac, "no free controller available")

		default:
			states[mac] = StateFailed
			e.setReason(result, mac, "unknown action")
		}
	}
}

func (e *Executor) connectExisting(entry model.GameplanEntry, log *logrus.Entry) (TargetState, string) {
	rec := entry.RecommendedController
	mac := string(entry.TargetMAC)

	if err := e.bt.Select(rec); err != nil {
		log.WithError(err).Error("select failed")
		return StateFailed, "select failed: " + err.Error()
	}
	_ = e.bt.Scan(rec, true)
	time.Sleep(scanSettleDelay)
	_ = e.bt.Scan(rec, false)

	if err := e.bt.Connect(rec, mac); err != nil {
		log.WithError(err).Error("connect failed")
		return StateFailed, "connect failed: " + err.Error()
	}
	if !e.verifyConnected(rec, mac) {
		log.Warn("connect did not converge")
		return StateFailed, "connect did not converge"
	}
	return StateConnected, ""
}

func (e *Executor) pairAndConnect(entry model.GameplanEntry, log *logrus.Entry) (TargetState, string) {
	rec := entry.RecommendedController
	mac := string(entry.TargetMAC)

	if err := e.bt.Select(rec); err != nil {
		log.WithError(err).Error("select failed")
		return StateFailed, "select failed: " + err.Error()
	}
	_ = e.bt.Scan(rec, true)
	defer func() { _ = e.bt.Scan(rec, false) }()
	time.Sleep(pairScanWindow)

	if err := e.bt.Pair(rec, mac); err != nil {
		log.WithError(err).Error("pair failed")
		return StateFailed, "pair failed: " + err.Error()
	}

	info, err := e.bt.DeviceInfo(rec, mac)
	if err != nil || !info.Paired {
		ok, err := e.bt.WaitForFlag(rec, mac, bluez.FlagPaired, bluez.DefaultTimeout)
		if err != nil {
			log.WithError(err).Error("wait for paired failed")
			return StateFailed, "pairing timeout: " + err.Error()
		}
		if !ok {
			log.Warn("pairing timeout")
			return StateFailed, "pairing timeout"
		}
	}

	if err := e.bt.Trust(rec, mac); err != nil {
		log.WithError(err).Error("trust failed")
		return StateFailed, "trust failed: " + err.Error()
	}
	ok, err := e.bt.WaitForFlag(rec, mac, bluez.FlagTrusted, bluez.DefaultTimeout)
	if err != nil {
		log.WithError(err).Error("wait for trusted failed")
		return StateFailed, "trust timeout: " + err.Error()
	}
	if !ok {
		log.Warn("trust timeout")
		return StateFailed, "trust timeout"
	}

	if err := e.bt.Connect(rec, mac); err != nil {
		log.WithError(err).Error("connect failed")
		return StateFailed, "connect failed: " + err.Error()
	}
	time.Sleep(postConnectSettleDelay)

	if !e.verifyConnected(rec, mac) {
		log.Warn("connect did not converge")
		return StateFailed, "connect did not converge"
	}
	return StateConnected, ""
}

func (e *Executor) verifyConnected(controller model.MAC, mac string) bool {
	devices, err := e.bt.ListDevices(controller, bluez.FilterConnected)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if string(d.MAC) == mac {
			return true
		}
	}
	return false
}

func (e *Executor) setReason(result *model.Result, mac model.MAC, reason string) {
	entry := result.Entries[mac]
	entry.Reason = reason
	result.Entries[mac] = entry
}
