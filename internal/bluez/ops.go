package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/speakerhub/orchestrator/internal/model"
)

// Select sets the active controller for subsequent operations. BlueZ
// itself has no process-wide "selected controller" concept the way the
// bluetoothctl prompt does — every call here already names its
// controller explicitly — but the executor still calls Select before
// each burst of per-controller operations, both to make Phase A/B's
// "one controller session at a time" discipline explicit in the call
// sequence and to fail fast if the controller has disappeared.
func (c *Client) Select(controller model.MAC) error {
	_, err := c.controllerPath(controller)
	return err
}

// Scan toggles discovery on controller.
func (c *Client) Scan(controller model.MAC, on bool) error {
	path, err := c.controllerPath(controller)
	if err != nil {
		return err
	}
	obj := c.conn.Object(busName, path)
	method := adapterIface + ".StopDiscovery"
	if on {
		method = adapterIface + ".StartDiscovery"
	}
	if call := obj.Call(method, 0); call.Err != nil {
		return fmt.Errorf("bluez: %w: %s: %v", ErrTransport, method, call.Err)
	}
	return nil
}

// Pair initiates pairing with mac on controller. Convergence must be
// observed via WaitForFlag(paired, ...); this call only kicks off the
// handshake.
func (c *Client) Pair(controller model.MAC, mac string) error {
	return c.deviceCall(controller, mac, deviceIface+".Pair")
}

// Trust marks mac as trusted on controller.
func (c *Client) Trust(controller model.MAC, mac string) error {
	path, err := c.controllerPath(controller)
	if err != nil {
		return err
	}
	devPath := deviceObjectPath(path, mac)
	if err := c.setProp(devPath, deviceIface, "Trusted", true); err != nil {
		return fmt.Errorf("bluez: %w: trust %s: %v", ErrTransport, mac, err)
	}
	return nil
}

// Connect initiates a connection to mac on controller.
func (c *Client) Connect(controller model.MAC, mac string) error {
	return c.deviceCall(controller, mac, deviceIface+".Connect")
}

// Disconnect tears down the connection to mac on controller.
func (c *Client) Disconnect(controller model.MAC, mac string) error {
	return c.deviceCall(controller, mac, deviceIface+".Disconnect")
}

// Remove destroys the pairing relationship entirely. Neither the apply
// flow nor DisconnectConfiguration calls it; DisconnectConfiguration
// only disconnects.
func (c *Client) Remove(controller model.MAC, mac string) error {
	ctrlPath, err := c.controllerPath(controller)
	if err != nil {
		return err
	}
	devPath := deviceObjectPath(ctrlPath, mac)
	obj := c.conn.Object(busName, ctrlPath)
	if call := obj.Call(adapterIface+".RemoveDevice", 0, devPath); call.Err != nil {
		return fmt.Errorf("bluez: %w: remove %s: %v", ErrTransport, mac, call.Err)
	}
	return nil
}

func (c *Client) deviceCall(controller model.MAC, mac, method string) error {
	ctrlPath, err := c.controllerPath(controller)
	if err != nil {
		return err
	}
	devPath := deviceObjectPath(ctrlPath, mac)
	obj := c.conn.Object(busName, devPath)
	if call := obj.Call(method, 0); call.Err != nil {
		return classifyDeviceError(mac, method, call.Err)
	}
	return nil
}

func classifyDeviceError(mac, method string, err error) error {
	if dbusErr, ok := err.(dbus.Error); ok {
		switch dbusErr.Name {
		case "org.bluez.Error.DoesNotExist", "org.freedesktop.DBus.Error.UnknownObject":
			return fmt.Errorf("bluez: %w: %s %s: %v", ErrNotFound, method, mac, err)
		case "org.bluez.Error.InProgress", "org.bluez.Error.AlreadyConnected":
			return fmt.Errorf("bluez: %w: %s %s: %v", ErrBusy, method, mac, err)
		}
	}
	return fmt.Errorf("bluez: %w: %s %s: %v", ErrTransport, method, mac, err)
}
