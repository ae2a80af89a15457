package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestDeviceObjectPath(t *testing.T) {
	path := deviceObjectPath(dbus.ObjectPath("/org/bluez/hci0"), "AA:BB:CC:DD:EE:FF")
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"), path)
}

func TestMacFromPath(t *testing.T) {
	mac := macFromPath(dbus.ObjectPath("/org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF"))
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", mac)
}

func TestMacFromPathNoMatch(t *testing.T) {
	mac := macFromPath(dbus.ObjectPath("/org/bluez/hci1"))
	assert.Equal(t, "", mac)
}
