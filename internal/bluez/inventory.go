package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/speakerhub/orchestrator/internal/model"
)

// Filter selects which devices ListDevices returns.
type Filter int

const (
	FilterAll Filter = iota
	FilterPaired
	FilterConnected
)

// managedObjects is one GetManagedObjects call on the root path,
// returning every object BlueZ currently knows about. Both
// ListControllers and ListDevices/DeviceInfo use this single call
// rather than spawning a session per query — the "one object-manager
// call" promise of the design notes.
func (c *Client) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := c.conn.Object(busName, dbus.ObjectPath("/"))
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := obj.Call(objManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("bluez: %w: GetManagedObjects: %v", ErrTransport, call.Err)
	}
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}
	return objs, nil
}

// ListControllers enumerates every radio BlueZ manages, each with
// Role RoleAudio. This adapter has no notion of "reserved": the
// facade leaves out the controller whose MAC matches
// SPEAKERHUB_RESERVED_CONTROLLER.
func (c *Client) ListControllers() ([]model.Controller, error) {
	objs, err := c.managedObjects()
	if err != nil {
		return nil, err
	}

	var out []model.Controller
	for path, ifaces := range objs {
		props, ok := ifaces[adapterIface]
		if !ok {
			continue
		}
		var mac, name string
		if v, ok := props["Address"]; ok {
			mac, _ = v.Value().(string)
		}
		if v, ok := props["Alias"]; ok {
			name, _ = v.Value().(string)
		} else if v, ok := props["Name"]; ok {
			name, _ = v.Value().(string)
		}
		if name == "" {
			name = string(path)
		}
		out = append(out, model.Controller{
			MAC:          model.MAC(mac),
			Role:         model.RoleAudio,
			FriendlyName: name,
		})
	}
	return out, nil
}

// controllerPath finds the BlueZ object path for a controller MAC by
// scanning the managed objects, fetched with one GetManagedObjects
// round trip per call — controllers are few, so the scan itself is a
// cheap linear walk.
func (c *Client) controllerPath(controller model.MAC) (dbus.ObjectPath, error) {
	objs, err := c.managedObjects()
	if err != nil {
		return "", err
	}
	for path, ifaces := range objs {
		props, ok := ifaces[adapterIface]
		if !ok {
			continue
		}
		if v, ok := props["Address"]; ok {
			if mac, _ := v.Value().(string); mac == string(controller) {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("bluez: %w: controller %s", ErrNotFound, controller)
}

// ListDevices returns devices visible under controller, restricted by
// filter.
func (c *Client) ListDevices(controller model.MAC, filter Filter) ([]model.Device, error) {
	ctrlPath, err := c.controllerPath(controller)
	if err != nil {
		return nil, err
	}
	objs, err := c.managedObjects()
	if err != nil {
		return nil, err
	}

	prefix := string(ctrlPath) + "/dev_"
	var out []model.Device
	for path, ifaces := range objs {
		if len(string(path)) <= len(prefix) || string(path)[:len(prefix)] != prefix {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if !matchesFilter(props, filter) {
			continue
		}
		mac := macFromPath(path)
		name := ""
		if v, ok := props["Alias"]; ok {
			name, _ = v.Value().(string)
		} else if v, ok := props["Name"]; ok {
			name, _ = v.Value().(string)
		}
		out = append(out, model.Device{MAC: model.MAC(mac), Name: name})
	}
	return out, nil
}

func matchesFilter(props map[string]dbus.Variant, filter Filter) bool {
	switch filter {
	case FilterPaired:
		v, ok := props["Paired"]
		if !ok {
			return false
		}
		b, _ := v.Value().(bool)
		return b
	case FilterConnected:
		v, ok := props["Connected"]
		if !ok {
			return false
		}
		b, _ := v.Value().(bool)
		return b
	default:
		return true
	}
}

// DeviceInfo returns the current paired/trusted/connected snapshot for
// mac under controller, as read directly from BlueZ (ground truth).
func (c *Client) DeviceInfo(controller model.MAC, mac string) (model.Attachment, error) {
	ctrlPath, err := c.controllerPath(controller)
	if err != nil {
		return model.Attachment{}, err
	}
	devPath := deviceObjectPath(ctrlPath, mac)

	paired, err := c.getBool(devPath, deviceIface, "Paired")
	if err != nil {
		return model.Attachment{}, fmt.Errorf("bluez: %w: device %s not known to controller %s", ErrNotFound, mac, controller)
	}
	trusted, _ := c.getBool(devPath, deviceIface, "Trusted")
	connected, _ := c.getBool(devPath, deviceIface, "Connected")
	name, _ := c.getString(devPath, deviceIface, "Alias")

	return model.Attachment{
		Controller: controller,
		Device:     model.MAC(mac),
		Paired:     paired,
		Trusted:    trusted,
		Connected:  connected,
		Name:       name,
	}, nil
}
