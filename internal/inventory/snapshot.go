// Package inventory builds the Inventory Snapshot (C3): an immutable
// view of every controller and the paired/connected state of every
// device on it.
package inventory

import (
	"fmt"

	"github.com/speakerhub/orchestrator/internal/bluez"
	"github.com/speakerhub/orchestrator/internal/model"
)

// attachmentKey identifies one (controller, device) pair.
type attachmentKey struct {
	Controller model.MAC
	Device     model.MAC
}

// Snapshot is the immutable result of one inventory pass.
type Snapshot struct {
	Controllers []model.Controller
	attachments map[attachmentKey]model.Attachment
}

// BluetoothSource is the subset of the Bluetooth Control Adapter the
// snapshot builder needs. Defined here (rather than depending on the
// concrete *bluez.Client everywhere) so tests can fake it.
type BluetoothSource interface {
	ListControllers() ([]model.Controller, error)
	ListDevices(controller model.MAC, filter bluez.Filter) ([]model.Device, error)
}

// Build queries source once per controller for its paired and
// connected device sets and assembles an immutable Snapshot. No
// incremental updating: a fresh Build is taken per apply call (spec
// §4.3).
func Build(source BluetoothSource) (*Snapshot, error) {
	controllers, err := source.ListControllers()
	if err != nil {
		return nil, fmt.Errorf("inventory: list controllers: %w", err)
	}

	attachments := make(map[attachmentKey]model.Attachment)
	for _, ctrl := range controllers {
		paired, err := source.ListDevices(ctrl.MAC, bluez.FilterPaired)
		if err != nil {
			return nil, fmt.Errorf("inventory: list paired devices on %s: %w", ctrl.MAC, err)
		}
		connected, err := source.ListDevices(ctrl.MAC, bluez.FilterConnected)
		if err != nil {
			return nil, fmt.Errorf("inventory: list connected devices on %s: %w", ctrl.MAC, err)
		}

		connectedSet := make(map[model.MAC]bool, len(connected))
		for _, d := range connected {
			connectedSet[d.MAC] = true
		}

		for _, d := range paired {
			key := attachmentKey{Controller: ctrl.MAC, Device: d.MAC}
			attachments[key] = model.Attachment{
				Controller: ctrl.MAC,
				Device:     d.MAC,
				Paired:     true,
				Connected:  connectedSet[d.MAC],
				Name:       d.Name,
			}
		}
		// A device can show up as connected without BlueZ considering
		// it "paired" in rare transient states; fold those in too so
		// the planner never loses a live connection.
		for _, d := range connected {
			key := attachmentKey{Controller: ctrl.MAC, Device: d.MAC}
			if _, ok := attachments[key]; !ok {
				attachments[key] = model.Attachment{
					Controller: ctrl.MAC,
					Device:     d.MAC,
					Connected:  true,
					Name:       d.Name,
				}
			}
		}
	}

	return &Snapshot{Controllers: controllers, attachments: attachments}, nil
}

// New builds a Snapshot directly from a list of attachments, without
// going through a BluetoothSource. Used by tests that want to exercise
// the Planner against a hand-built world state.
func New(controllers []model.Controller, attachmentList []model.Attachment) *Snapshot {
	attachments := make(map[attachmentKey]model.Attachment, len(attachmentList))
	for _, a := range attachmentList {
		attachments[attachmentKey{Controller: a.Controller, Device: a.Device}] = a
	}
	return &Snapshot{Controllers: controllers, attachments: attachments}
}

// PairedOn returns the controllers (restricted to pool) where mac is
// currently paired.
func (s *Snapshot) PairedOn(mac model.MAC, pool []model.Controller) []model.MAC {
	return s.filterControllers(mac, pool, func(a model.Attachment) bool { return a.Paired })
}

// ConnectedOn returns the controllers (restricted to pool) where mac
// is currently connected.
func (s *Snapshot) ConnectedOn(mac model.MAC, pool []model.Controller) []model.MAC {
	return s.filterControllers(mac, pool, func(a model.Attachment) bool { return a.Connected })
}

func (s *Snapshot) filterControllers(mac model.MAC, pool []model.Controller, match func(model.Attachment) bool) []model.MAC {
	var out []model.MAC
	for _, ctrl := range pool {
		key := attachmentKey{Controller: ctrl.MAC, Device: mac}
		if a, ok := s.attachments[key]; ok && match(a) {
			out = append(out, ctrl.MAC)
		}
	}
	return out
}
