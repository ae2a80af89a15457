package orchestrator

import (
	"context"
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
	"github.com/speakerhub/orchestrator/internal/orcherr"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeSource is a hand-rolled fake satisfying BluetoothSource (pool
// listing plus the full executor.BluetoothController surface), the
// same fakes-over-mocks pattern used in internal/executor's tests.
type fakeSource struct {
	controllers []model.Controller
	attachments map[model.MAC]*model.Attachment
}

func newFakeSource(controllers ...model.Controller) *fakeSource {
	return &fakeSource{controllers: controllers, attachments: make(map[model.MAC]*model.Attachment)}
}

func (f *fakeSource) ListControllers() ([]model.Controller, error) { return f.controllers, nil }

func (f *fakeSource) attachment(mac model.MAC) *model.Attachment {
	a, ok := f.attachments[mac]
	if !ok {
		a = &model.Attachment{Device: mac}
		f.attachments[mac] = a
	}
	return a
}

func (f *fakeSource) Select(controller model.MAC) error { return nil }
func (f *fakeSource) Scan(controller model.MAC, on bool) error { return nil }

func (f *fakeSource) Pair(controller model.MAC, mac string) error {
	f.attachment(model.MAC(mac)).Paired = true
	return nil
}

func (f *fakeSource) Trust(controller model.MAC, mac string) error {
	f.attachment(model.MAC(mac)).Trusted = true
	return nil
}

func (f *fakeSource) Connect(controller model.MAC, mac string) error {
	f.attachment(model.MAC(mac)).Connected = true
	return nil
}

func (f *fakeSource) Disconnect(controller model.MAC, mac string) error {
	f.attachment(model.MAC(mac)).Connected = false
	return nil
}

func (f *fakeSource) Remove(controller model.MAC, mac string) error {
	delete(f.attachments, model.MAC(mac))
	return nil
}

func (f *fakeSource) DeviceInfo(controller model.MAC, mac string) (model.Attachment, error) {
	a, ok := f.attachments[model.MAC(mac)]
	if !ok {
		return model.Attachment{}, errors.New("not found")
	}
	return *a, nil
}

func (f *fakeSource) ListDevices(controller model.MAC, filter bluez.Filter) ([]model.Device, error) {
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

func (f *fakeSource) WaitForFlag(controller model.MAC, mac string, flag bluez.Flag, timeout time.Duration) (bool, error) {
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

type fakeAudio struct {
	running       bool
	sinks         map[string]bool
	moduleCounter uint32
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

func TestFacadeApplyThenDisconnectRoundTrips(t *testing.T) {
	bt := newFakeSource(model.Controller{MAC: "R1", Role: model.RoleAudio})
	aud := newFakeAudio()
	aud.sinks[audio.SinkName("AA:BB:CC:DD:EE:01")] = true

	f := New(bt, aud, testLogger(), "")

	cfg := model.Configuration{
		ConfigID: "c1",
		Targets:  []model.Target{{MAC: "AA:BB:CC:DD:EE:01", Name: "Left"}},
	}

	result, err := f.ApplyConfiguration(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConnected, result.Entries["AA:BB:CC:DD:EE:01"].Status)
	assert.True(t, result.VirtualSink.Present)
	assert.Len(t, result.Loopbacks, 1)

	status := f.Status()
	assert.True(t, status.VirtualSink.Present)
	assert.Len(t, status.Loopbacks, 1)

	disc, err := f.DisconnectConfiguration(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, disc.VirtualSink.Present)
	assert.Empty(t, disc.Loopbacks)

	final := f.Status()
	assert.False(t, final.VirtualSink.Present)
	assert.Empty(t, final.Loopbacks)
}

func TestFacadeApplyRejectsEmptyConfiguration(t *testing.T) {
	bt := newFakeSource(model.Controller{MAC: "R1"})
	f := New(bt, newFakeAudio(), testLogger(), "")

	_, err := f.ApplyConfiguration(context.Background(), model.Configuration{})
	assert.Error(t, err)
}

func TestFacadeExcludesReservedController(t *testing.T) {
	bt := newFakeSource(model.Controller{MAC: "RESERVED", Role: model.RoleReservedBLE})
	f := New(bt, newFakeAudio(), testLogger(), "RESERVED")

	cfg := model.Configuration{Targets: []model.Target{{MAC: "AA:BB:CC:DD:EE:01", Name: "Left"}}}
	_, err := f.ApplyConfiguration(context.Background(), cfg)
	assert.ErrorIs(t, err, orcherr.ErrNoControllers)
}
