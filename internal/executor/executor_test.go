package executor

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/bluez"
	"github.com/speakerhub/orchestrator/internal/model"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func init() {
	// Shrink the settle windows so these tests run fast; they exercise
	// the same call sequence regardless of the delay length.
	disconnectSettleDelay = time.Millisecond
	scanSettleDelay = time.Millisecond
	pairScanWindow = time.Millisecond
	postConnectSettleDelay = time.Millisecond
}

// fakeBluetooth is a hand-rolled fake (no mocking framework, per the
// pack's preference for real fakes over generated mocks) driven by a
// pre-seeded attachment table and a set of MACs that should never
// converge on pairing.
type fakeBluetooth struct {
	attachments  map[model.MAC]*model.Attachment // keyed by device mac, one controller each for simplicity
	neverPair    map[model.MAC]bool
	disconnected []model.MAC
	selected     []model.MAC
}

func newFakeBluetooth() *fakeBluetooth {
	return &fakeBluetooth{attachments: make(map[model.MAC]*model.Attachment), neverPair: make(map[model.MAC]bool)}
}

func (f *fakeBluetooth) Select(controller model.MAC) error {
	f.selected = append(f.selected, controller)
	return nil
}

func (f *fakeBluetooth) Scan(controller model.MAC, on bool) error { return nil }

func (f *fakeBluetooth) Pair(controller model.MAC, mac string) error {
	if f.neverPair[model.MAC(mac)] {
		return nil // command "succeeds" but the flag never flips, per spec's edge case
	}
	a := f.attachment(model.MAC(mac))
	a.Paired = true
	return nil
}

func (f *fakeBluetooth) Trust(controller model.MAC, mac string) error {
	a := f.attachment(model.MAC(mac))
	a.Trusted = true
	return nil
}

func (f *fakeBluetooth) Connect(controller model.MAC, mac string) error {
	a := f.attachment(model.MAC(mac))
	a.Connected = true
	return nil
}

func (f *fakeBluetooth) Disconnect(controller model.MAC, mac string) error {
	a := f.attachment(model.MAC(mac))
	a.Connected = false
	f.disconnected = append(f.disconnected, model.MAC(mac))
	return nil
}

func (f *fakeBluetooth) Remove(controller model.MAC, mac string) error {
	delete(f.attachments, model.MAC(mac))
	return nil
}

func (f *fakeBluetooth) DeviceInfo(controller model.MAC, mac string) (model.Attachment, error) {
	a, ok := f.attachments[model.MAC(mac)]
	if !ok {
		return model.Attachment{}, errors.New("not found")
	}
	return *a, nil
}

func (f *fakeBluetooth) ListDevices(controller model.MAC, filter bluez.Filter) ([]model.Device, error) {
	var out []model.Device
	for mac, a := range f.attachments {
		switch filter {
		case bluez.FilterConnected:
			if a.Connected {
				out = append(out, model.Device{MAC: mac})
			}
		case bluez.FilterPaired:
			if a.Paired {
				out = append(out, model.Device{MAC: mac})
			}
		default:
			out = append(out, model.Device{MAC: mac})
		}
	}
	return out, nil
}

func (f *fakeBluetooth) WaitForFlag(controller model.MAC, mac string, flag bluez.Flag, timeout time.Duration) (bool, error) {
	if f.neverPair[model.MAC(mac)] && flag == bluez.FlagPaired {
		return false, nil // simulates timeout without actually sleeping 30s
	}
	a := f.attachment(model.MAC(mac))
	switch flag {
	case bluez.FlagPaired:
		return a.Paired, nil
	case bluez.FlagTrusted:
		return a.Trusted, nil
	case bluez.FlagConnected:
		return a.Connected, nil
	}
	return false, nil
}

func (f *fakeBluetooth) attachment(mac model.MAC) *model.Attachment {
	a, ok := f.attachments[mac]
	if !ok {
		a = &model.Attachment{Device: mac}
		f.attachments[mac] = a
	}
	return a
}

// fakeAudio is a hand-rolled fake audio adapter.
type fakeAudio struct {
	running       bool
	sinks         map[string]bool
	moduleCounter uint32
	loopbackFails bool
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{running: true, sinks: make(map[string]bool)}
}

func (f *fakeAudio) EnsureRunning(timeout time.Duration) error {
	if !f.running {
		return audio.ErrUnavailable
	}
	return nil
}

func (f *fakeAudio) LoadNullSink(name string) (uint32, error) {
	f.moduleCounter++
	return f.moduleCounter, nil
}

func (f *fakeAudio) LoadLoopback(sourceMonitor, sinkName string, latencyMs int) (uint32, int, error) {
	if f.loopbackFails {
		return 0, 3, audio.ErrLoopbackLoad
	}
	f.moduleCounter++
	return f.moduleCounter, 1, nil
}

func (f *fakeAudio) UnloadModule(id uint32) error { return nil }

func (f *fakeAudio) ListSinks() ([]audio.SinkInfo, error) {
	var out []audio.SinkInfo
	for name := range f.sinks {
		out = append(out, audio.SinkInfo{Name: name, State: audio.SinkRunning})
	}
	return out, nil
}

func (f *fakeAudio) ListModules() ([]audio.ModuleInfo, error) { return nil, nil }

func (f *fakeAudio) UnsuspendSink(name string) error { return nil }

func (f *fakeAudio) UnloadAllMatching(predicate func(audio.ModuleInfo) bool) ([]uint32, error) {
	return nil, nil
}

func TestExecutorHappyPathTwoFreshTargets(t *testing.T) {
	bt := newFakeBluetooth()
	aud := newFakeAudio()
	aud.sinks[audio.SinkName("AA:BB:CC:DD:EE:01")] = true
	aud.sinks[audio.SinkName("AA:BB:CC:DD:EE:02")] = true

	ex := New(bt, aud, testLogger())

	gp := model.NewGameplan()
	gp.Add(model.GameplanEntry{TargetMAC: "AA:BB:CC:DD:EE:01", Action: model.ActionPairAndConnect, RecommendedController: "R1"})
	gp.Add(model.GameplanEntry{TargetMAC: "AA:BB:CC:DD:EE:02", Action: model.ActionPairAndConnect, RecommendedController: "R2"})

	topo := audio.NewTopology()
	result := ex.Run(gp, topo)

	assert.Equal(t, model.StatusConnected, result.Entries["AA:BB:CC:DD:EE:01"].Status)
	assert.Equal(t, model.StatusConnected, result.Entries["AA:BB:CC:DD:EE:02"].Status)
	assert.True(t, result.VirtualSink.Present)
	assert.Len(t, result.Loopbacks, 2)
}

// Scenario 5: pair timeout — target fails, reason mentions "pairing timeout".
func TestExecutorPairTimeout(t *testing.T) {
	bt := newFakeBluetooth()
	bt.neverPair["A"] = true
	aud := newFakeAudio()

	ex := New(bt, aud, testLogger())

	gp := model.NewGameplan()
	gp.Add(model.GameplanEntry{TargetMAC: "A", Action: model.ActionPairAndConnect, RecommendedController: "R1"})

	topo := audio.NewTopology()
	result := ex.Run(gp, topo)

	entry := result.Entries["A"]
	assert.Equal(t, model.StatusFailed, entry.Status)
	assert.Contains(t, entry.Reason, "pairing timeout")
	assert.Empty(t, result.Loopbacks)
}

// Scenario 6: audio daemon down — Bluetooth connects, overall status
// is audioDegraded, no loopback created.
func TestExecutorAudioUnavailable(t *testing.T) {
	bt := newFakeBluetooth()
	aud := newFakeAudio()
	aud.running = false

	ex := New(bt, aud, testLogger())

	gp := model.NewGameplan()
	gp.Add(model.GameplanEntry{TargetMAC: "A", Action: model.ActionPairAndConnect, RecommendedController: "R1"})

	topo := audio.NewTopology()
	result := ex.Run(gp, topo)

	entry := result.Entries["A"]
	assert.Equal(t, model.StatusAudioDegraded, entry.Status)
	assert.False(t, result.VirtualSink.Present)
	assert.Empty(t, result.Loopbacks)
}

// NoFreeController entries surface as noController without any
// Bluetooth side effects.
func TestExecutorNoFreeController(t *testing.T) {
	bt := newFakeBluetooth()
	aud := newFakeAudio()
	ex := New(bt, aud, testLogger())

	gp := model.NewGameplan()
	gp.Add(model.GameplanEntry{TargetMAC: "A", Action: model.ActionNoFreeController})

	topo := audio.NewTopology()
	result := ex.Run(gp, topo)

	entry := result.Entries["A"]
	assert.Equal(t, model.StatusNoController, entry.Status)
	assert.Empty(t, bt.selected)
}

// RoleSource targets connect but never get a loopback.
func TestExecutorRoleSourceSkipsLoopback(t *testing.T) {
	bt := newFakeBluetooth()
	aud := newFakeAudio()
	aud.sinks[audio.SinkName("PHONE")] = true
	ex := New(bt, aud, testLogger())

	gp := model.NewGameplan()
	gp.Add(model.GameplanEntry{TargetMAC: "PHONE", Action: model.ActionPairAndConnect, RecommendedController: "R1", Role: model.RoleSource})

	topo := audio.NewTopology()
	result := ex.Run(gp, topo)

	require.Equal(t, model.StatusConnected, result.Entries["PHONE"].Status)
	assert.Empty(t, result.Loopbacks)
}
