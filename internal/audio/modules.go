package audio

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// SinkInfo is one entry from ListSinks.
type SinkInfo struct {
	Name  string
	State SinkState
}

// SinkState mirrors PulseAudio's sink state enum.
type SinkState uint32

const (
	SinkRunning   SinkState = 0
	SinkIdle      SinkState = 1
	SinkSuspended SinkState = 2
)

// ModuleInfo is one entry from ListModules.
type ModuleInfo struct {
	ID      uint32
	Name    string
	ArgStr  string
	objPath dbus.ObjectPath
}

const (
	loadLoopbackRetries    = 3
	loadLoopbackRetryDelay = 2 * time.Second
)

// LoadNullSink loads module-null-sink with the given sink name and
// returns its module id. Idempotent at the call site: callers check
// ListModules first (Phase C step 2) so this is only actually invoked
// once per topology lifetime.
func (c *Client) LoadNullSink(name string) (uint32, error) {
	args := fmt.Sprintf("sink_name=%s", name)
	return c.loadModule("module-null-sink", args)
}

// LoadLoopback loads module-loopback routing sourceMonitor to
// sinkName at latencyMs, retrying up to 3 times 2s apart. It fails
// only if every attempt returns a non-numeric result (spec §4.2). The
// returned attempt count lets callers surface retry activity on the
// per-target result.
func (c *Client) LoadLoopback(sourceMonitor, sinkName string, latencyMs int) (uint32, int, error) {
	args := fmt.Sprintf("source=%s sink=%s latency_msec=%d", sourceMonitor, sinkName, latencyMs)

	var lastErr error
	for attempt := 1; attempt <= loadLoopbackRetries; attempt++ {
		id, err := c.loadModule("module-loopback", args)
		if err == nil {
			return id, attempt, nil
		}
		lastErr = err
		if attempt < loadLoopbackRetries {
			time.Sleep(loadLoopbackRetryDelay)
		}
	}
	return 0, loadLoopbackRetries, fmt.Errorf("%w: %s -> %s: %v", ErrLoopbackLoad, sourceMonitor, sinkName, lastErr)
}

func (c *Client) loadModule(name, args string) (uint32, error) {
	var modPath dbus.ObjectPath
	call := c.core.Call(core1Iface+".LoadModule", 0, name, args)
	if call.Err != nil {
		return 0, fmt.Errorf("audio: %w: LoadModule(%s): %v", ErrUnavailable, name, call.Err)
	}
	if err := call.Store(&modPath); err != nil {
		return 0, fmt.Errorf("audio: decode LoadModule(%s) reply: %w", name, err)
	}
	return c.moduleIndex(modPath)
}

func (c *Client) moduleIndex(path dbus.ObjectPath) (uint32, error) {
	obj := c.conn.Object("", path)
	var v dbus.Variant
	call := obj.Call(propsIface+".Get", 0, module1Iface, "Index")
	if call.Err != nil {
		return 0, fmt.Errorf("audio: read module index: %w", call.Err)
	}
	if err := call.Store(&v); err != nil {
		return 0, fmt.Errorf("audio: decode module index: %w", err)
	}
	idx, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("audio: module index property is not numeric")
	}
	return idx, nil
}

// UnloadModule unloads the module with the given index.
func (c *Client) UnloadModule(id uint32) error {
	path, err := c.modulePathByIndex(id)
	if err != nil {
		return err
	}
	if call := c.core.Call(core1Iface+".UnloadModule", 0, path); call.Err != nil {
		return fmt.Errorf("audio: %w: UnloadModule(%d): %v", ErrUnavailable, id, call.Err)
	}
	return nil
}

func (c *Client) modulePathByIndex(id uint32) (dbus.ObjectPath, error) {
	mods, err := c.listModulePaths()
	if err != nil {
		return "", err
	}
	for _, p := range mods {
		idx, err := c.moduleIndex(p)
		if err == nil && idx == id {
			return p, nil
		}
	}
	return "", fmt.Errorf("audio: module %d not found", id)
}

func (c *Client) listModulePaths() ([]dbus.ObjectPath, error) {
	var v dbus.Variant
	call := c.core.Call(propsIface+".Get", 0, core1Iface, "Modules")
	if call.Err != nil {
		return nil, fmt.Errorf("audio: %w: list modules: %v", ErrUnavailable, call.Err)
	}
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("audio: decode module list: %w", err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("audio: module list property has unexpected type")
	}
	return paths, nil
}

// ListModules enumerates every loaded module.
func (c *Client) ListModules() ([]ModuleInfo, error) {
	paths, err := c.listModulePaths()
	if err != nil {
		return nil, err
	}
	out := make([]ModuleInfo, 0, len(paths))
	for _, p := range paths {
		obj := c.conn.Object("", p)
		info := ModuleInfo{objPath: p}

		if idx, err := c.moduleIndex(p); err == nil {
			info.ID = idx
		}
		if v, err := getVariant(obj, module1Iface, "Name"); err == nil {
			info.Name, _ = v.Value().(string)
		}
		if v, err := getVariant(obj, module1Iface, "Argument"); err == nil {
			info.ArgStr, _ = v.Value().(string)
		}
		out = append(out, info)
	}
	return out, nil
}

// ListSinks enumerates every sink.
func (c *Client) ListSinks() ([]SinkInfo, error) {
	var v dbus.Variant
	call := c.core.Call(propsIface+".Get", 0, core1Iface, "Sinks")
	if call.Err != nil {
		return nil, fmt.Errorf("audio: %w: list sinks: %v", ErrUnavailable, call.Err)
	}
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("audio: decode sink list: %w", err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("audio: sink list property has unexpected type")
	}

	out := make([]SinkInfo, 0, len(paths))
	for _, p := range paths {
		obj := c.conn.Object("", p)
		info := SinkInfo{}
		if v, err := getVariant(obj, sink1Iface, "Name"); err == nil {
			info.Name, _ = v.Value().(string)
		}
		if v, err := getVariant(obj, sink1Iface, "State"); err == nil {
			if s, ok := v.Value().(uint32); ok {
				info.State = SinkState(s)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// UnsuspendSink sets the named sink's State to Running.
func (c *Client) UnsuspendSink(name string) error {
	sinks, err := c.sinkPaths()
	if err != nil {
		return err
	}
	path, ok := sinks[name]
	if !ok {
		return fmt.Errorf("audio: sink %q not found", name)
	}
	obj := c.conn.Object("", path)
	call := obj.Call(propsIface+".Set", 0, sink1Iface, "State", dbus.MakeVariant(uint32(SinkRunning)))
	if call.Err != nil {
		return fmt.Errorf("audio: %w: unsuspend %s: %v", ErrUnavailable, name, call.Err)
	}
	return nil
}

func (c *Client) sinkPaths() (map[string]dbus.ObjectPath, error) {
	var v dbus.Variant
	call := c.core.Call(propsIface+".Get", 0, core1Iface, "Sinks")
	if call.Err != nil {
		return nil, fmt.Errorf("audio: %w: list sinks: %v", ErrUnavailable, call.Err)
	}
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("audio: decode sink list: %w", err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("audio: sink list property has unexpected type")
	}
	out := make(map[string]dbus.ObjectPath, len(paths))
	for _, p := range paths {
		obj := c.conn.Object("", p)
		if v, err := getVariant(obj, sink1Iface, "Name"); err == nil {
			if name, ok := v.Value().(string); ok {
				out[name] = p
			}
		}
	}
	return out, nil
}

// UnloadAllMatching unloads every module for which predicate returns
// true, returning the ids it unloaded.
func (c *Client) UnloadAllMatching(predicate func(ModuleInfo) bool) ([]uint32, error) {
	mods, err := c.ListModules()
	if err != nil {
		return nil, err
	}
	var unloaded []uint32
	for _, m := range mods {
		if !predicate(m) {
			continue
		}
		if err := c.UnloadModule(m.ID); err != nil {
			return unloaded, err
		}
		unloaded = append(unloaded, m.ID)
	}
	return unloaded, nil
}

func getVariant(obj dbus.BusObject, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	call := obj.Call(propsIface+".Get", 0, iface, prop)
	if call.Err != nil {
		return v, call.Err
	}
	return v, call.Store(&v)
}
