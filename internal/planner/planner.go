// Package planner implements the Planner (C4): a pure function that
// turns a target set and an inventory snapshot into a Gameplan. It has
// no side effects and touches neither D-Bus client — grounded on the
// pack's policy packages, which keep decision logic free of I/O so it
// can be tested and reasoned about in isolation from the transport.
package planner

import (
	"github.com/speakerhub/orchestrator/internal/inventory"
	"github.com/speakerhub/orchestrator/internal/model"
)

// Plan computes a Gameplan for targets against snapshot, restricted to
// the controller pool (the reserved BLE controller must already be
// excluded by the caller — see spec §4.4).
//
// The algorithm is deterministic and greedy, processing targets one at
// a time in the order given: it prefers reusing an existing connected
// attachment, then an existing paired-but-disconnected attachment,
// then falls back to pairing fresh on any unassigned controller.
// Global optimization across all targets is an explicit non-goal —
// the ordered, first-free-wins assignment is intentional so two
// targets never race for the same controller.
func Plan(targets []model.Target, snap *inventory.Snapshot, pool []model.Controller) *model.Gameplan {
	gp := model.NewGameplan()
	assigned := make(map[model.MAC]bool, len(targets))

	for _, t := range targets {
		connectedOn := snap.ConnectedOn(t.MAC, pool)
		pairedOn := snap.PairedOn(t.MAC, pool)

		freeConnected := excludeAssigned(connectedOn, assigned)
		freePaired := excludeAssigned(pairedOn, assigned)

		entry := model.GameplanEntry{
			TargetMAC:   t.MAC,
			TargetName:  t.Name,
			Role:        t.EffectiveRole(),
			PairedOn:    pairedOn,
			ConnectedOn: connectedOn,
		}

		switch {
		case len(freeConnected) > 0:
			entry.RecommendedController = freeConnected[0]
			entry.Action = model.ActionNone

		case len(freePaired) > 0:
			entry.RecommendedController = freePaired[0]
			entry.Action = model.ActionConnectExisting

		default:
			if fresh := firstUnassigned(pool, assigned); fresh != "" {
				entry.RecommendedController = fresh
				entry.Action = model.ActionPairAndConnect
			} else {
				entry.Action = model.ActionNoFreeController
			}
		}

		if entry.RecommendedController != "" {
			assigned[entry.RecommendedController] = true
		}

		// Break stale attachments on any controller other than the one
		// we're keeping or about to use.
		for _, ctrl := range connectedOn {
			if ctrl != entry.RecommendedController {
				entry.Disconnect = append(entry.Disconnect, ctrl)
			}
		}

		gp.Add(entry)
	}

	return gp
}

func excludeAssigned(controllers []model.MAC, assigned map[model.MAC]bool) []model.MAC {
	var out []model.MAC
	for _, c := range controllers {
		if !assigned[c] {
			out = append(out, c)
		}
	}
	return out
}

func firstUnassigned(pool []model.Controller, assigned map[model.MAC]bool) model.MAC {
	for _, c := range pool {
		if !assigned[c.MAC] {
			return c.MAC
		}
	}
	return ""
}
