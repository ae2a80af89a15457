// Package bluez implements the Bluetooth Control Adapter (C1): a
// single typed D-Bus client over org.bluez, exposing the verbs of
// spec §4.1 directly instead of parsing an interactive daemon prompt.
package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	objManager   = "org.freedesktop.DBus.ObjectManager"
	propsSignal  = propsIface + ".PropertiesChanged"
)

// Client wraps a system D-Bus connection for BlueZ operations. All
// other files in this package are methods on Client.
type Client struct {
	conn *dbus.Conn
}

// New connects to the system bus and verifies BlueZ is present on it.
func New() (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bluez: list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("bluez: %w: org.bluez not found on system bus — is bluetooth.service running?", ErrTransport)
	}

	return &Client{conn: conn}, nil
}

// Close releases the underlying D-Bus connection.
func (c *Client) Close() {
	c.conn.Close()
}

// SubscribePropertyChanges returns a channel of PropertiesChanged
// signals for every object under /org/bluez, used by callers that want
// to observe disconnects asynchronously (outside the orchestrator's
// own polling loop).
func (c *Client) SubscribePropertyChanges() chan *dbus.Signal {
	c.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch", 0,
		"type='signal',interface='"+propsIface+"',member='PropertiesChanged',path_namespace='/org/bluez'",
	)
	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	return ch
}
