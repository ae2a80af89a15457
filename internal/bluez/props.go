package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// deviceObjectPath converts a controller path and a MAC like
// "AA:BB:CC:DD:EE:FF" to "<controllerPath>/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(controllerPath dbus.ObjectPath, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(addr, ":", "_")
	return dbus.ObjectPath(string(controllerPath) + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path,
// regardless of which controller it hangs off of.
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+len("/dev_"):], "_", ":")
}

func (c *Client) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (c *Client) setProp(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	obj := c.conn.Object(busName, path)
	return obj.Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

func (c *Client) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := c.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("bluez: property %s is not bool", prop)
	}
	return val, nil
}

func (c *Client) getString(path dbus.ObjectPath, iface, prop string) (string, error) {
	v, err := c.getProp(path, iface, prop)
	if err != nil {
		return "", err
	}
	val, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("bluez: property %s is not string", prop)
	}
	return val, nil
}
