// Package audio implements the Audio Control Adapter (C2): a typed
// D-Bus client over PulseAudio's org.PulseAudio.Core1 interface,
// exposed when module-dbus-protocol is loaded. It mirrors the shape of
// internal/bluez (same godbus dependency, same
// command-then-poll-to-convergence idiom) rather than introducing a
// second, differently-shaped transport for a second collaborator.
package audio

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	lookupBusName = "org.PulseAudio1"
	lookupPath    = "/org/pulseaudio/server_lookup1"
	core1Iface    = "org.PulseAudio.Core1"
	sink1Iface    = "org.PulseAudio.Core1.Sink"
	module1Iface  = "org.PulseAudio.Core1.Module"
	propsIface    = "org.freedesktop.DBus.Properties"
)

// Client wraps a private D-Bus connection to the PulseAudio server.
type Client struct {
	conn     *dbus.Conn
	core     dbus.BusObject
	corePath dbus.ObjectPath
}

// New resolves the PulseAudio D-Bus server address via the session
// bus lookup service and dials it directly, the same two-step handshake
// PulseAudio's own D-Bus clients use.
func New() (*Client, error) {
	addr, err := serverAddress()
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("audio: dial pulseaudio bus at %s: %w", addr, err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audio: authenticate pulseaudio bus: %w", err)
	}

	corePath := dbus.ObjectPath("/org/pulseaudio/core1")
	return &Client{
		conn:     conn,
		core:     conn.Object("", corePath),
		corePath: corePath,
	}, nil
}

// serverAddress looks up the PulseAudio private bus address via the
// well-known session-bus lookup object.
func serverAddress() (string, error) {
	if addr := os.Getenv("PULSE_DBUS_SERVER"); addr != "" {
		return addr, nil
	}

	sessionBus, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("audio: connect to session bus: %w", err)
	}
	obj := sessionBus.Object(lookupBusName, dbus.ObjectPath(lookupPath))
	var v dbus.Variant
	call := obj.Call(propsIface+".Get", 0, "org.PulseAudio.ServerLookup1", "Address")
	if call.Err != nil {
		return "", fmt.Errorf("audio: %w: lookup server address: %v", ErrUnavailable, call.Err)
	}
	if err := call.Store(&v); err != nil {
		return "", fmt.Errorf("audio: decode server address: %w", err)
	}
	addr, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("audio: %w: server address property is not a string", ErrUnavailable)
	}
	return addr, nil
}

// Close releases the underlying D-Bus connection.
func (c *Client) Close() {
	c.conn.Close()
}

// Ping reports whether the audio server answers a trivial property
// read.
func (c *Client) Ping() bool {
	var v dbus.Variant
	call := c.core.Call(propsIface+".Get", 0, core1Iface, "Version")
	if call.Err != nil {
		return false
	}
	return call.Store(&v) == nil
}
