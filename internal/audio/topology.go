package audio

import "sync"

// VirtualSinkName is the fixed name of the shared null-sink every
// speaker loopback routes through.
const VirtualSinkName = "virtual_out"

// Topology tracks the module ids this orchestrator owns: the single
// null-sink and one loopback per connected speaker. It outlives any
// one apply call — the orchestrator only ever unloads modules recorded
// here by id, since other clients load modules on the same server
// (spec §5). Loopbacks are recorded only when this orchestrator
// loads them; the null-sink is also adopted when Phase C finds a
// module-null-sink for VirtualSinkName already loaded.
type Topology struct {
	mu sync.Mutex

	nullSinkModuleID *uint32
	loopbacks        map[string]uint32 // sink name -> module id
}

// NewTopology returns an empty, not-yet-provisioned topology.
func NewTopology() *Topology {
	return &Topology{loopbacks: make(map[string]uint32)}
}

// NullSinkModuleID returns the owned null-sink's module id, if any.
func (t *Topology) NullSinkModuleID() (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nullSinkModuleID == nil {
		return 0, false
	}
	return *t.nullSinkModuleID, true
}

// SetNullSinkModuleID records the null-sink's module id.
func (t *Topology) SetNullSinkModuleID(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nullSinkModuleID = &id
}

// ClearNullSink forgets the owned null-sink (after teardown).
func (t *Topology) ClearNullSink() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nullSinkModuleID = nil
}

// Loopback returns the module id owned for sinkName, if any.
func (t *Topology) Loopback(sinkName string) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.loopbacks[sinkName]
	return id, ok
}

// SetLoopback records the module id owned for sinkName.
func (t *Topology) SetLoopback(sinkName string, id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loopbacks[sinkName] = id
}

// RemoveLoopback forgets a previously owned loopback.
func (t *Topology) RemoveLoopback(sinkName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.loopbacks, sinkName)
}

// Snapshot returns a copy of every loopback this orchestrator owns,
// keyed by sink name.
func (t *Topology) Snapshot() map[string]uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]uint32, len(t.loopbacks))
	for k, v := range t.loopbacks {
		out[k] = v
	}
	return out
}

// SinkName derives the BlueZ A2DP sink name for a speaker MAC, per the
// fixed naming convention of spec §4.5/§6:
// "bluez_sink.<MAC_with_underscores>.a2dp_sink".
func SinkName(mac string) string {
	b := []byte(mac)
	for i, c := range b {
		if c == ':' {
			b[i] = '_'
		}
	}
	return "bluez_sink." + string(b) + ".a2dp_sink"
}
