package executor

import (
	"time"

	"github.com/speakerhub/orchestrator/internal/audio"
	"github.com/speakerhub/orchestrator/internal/bluez"
	"github.com/speakerhub/orchestrator/internal/model"
)

// BluetoothController is the subset of the Bluetooth Control Adapter
// the Executor drives. Defined here so tests can supply a fake instead
// of a live D-Bus client.
type BluetoothController interface {
	Select(controller model.MAC) error
	Scan(controller model.MAC, on bool) error
	Pair(controller model.MAC, mac string) error
	Trust(controller model.MAC, mac string) error
	Connect(controller model.MAC, mac string) error
	Disconnect(controller model.MAC, mac string) error
	Remove(controller model.MAC, mac string) error
	DeviceInfo(controller model.MAC, mac string) (model.Attachment, error)
	ListDevices(controller model.MAC, filter bluez.Filter) ([]model.Device, error)
	WaitForFlag(controller model.MAC, mac string, flag bluez.Flag, timeout time.Duration) (bool, error)
}

// AudioController is the subset of the Audio Control Adapter the
// Executor drives for Phase C.
type AudioController interface {
	EnsureRunning(timeout time.Duration) error
	LoadNullSink(name string) (uint32, error)
	LoadLoopback(sourceMonitor, sinkName string, latencyMs int) (uint32, int, error)
	UnloadModule(id uint32) error
	ListSinks() ([]audio.SinkInfo, error)
	ListModules() ([]audio.ModuleInfo, error)
	UnsuspendSink(name string) error
	UnloadAllMatching(predicate func(audio.ModuleInfo) bool) ([]uint32, error)
}
