package coordination

import (
	"fmt"

	"github.com/hupe1980/meetmesh/core"
)

// Reduce collapses a fully confirmed state into the agreed time. The main
// coordinator's confirmed preference is authoritative; other confirmations
// only certify that it fits their availability.
func Reduce(state core.CoordinationState) (core.TimePreference, error) {
	if len(state.Sequence) == 0 {
		return core.TimePreference{}, fmt.Errorf("%w: empty sequence", core.ErrNotReady)
	}

	for _, p := range state.Sequence {
		sess, ok := state.Sessions[p]
		if !ok {
			return core.TimePreference{}, fmt.Errorf("%w: no session for %s", core.ErrNotReady, p)
		}

		if sess.Status != core.StatusConfirmed || sess.Preference == nil {
			return core.TimePreference{}, fmt.Errorf("%w: %s is %s", core.ErrNotReady, p, sess.Status)
		}
	}

	return *state.Sessions[state.MainCoordinator].Preference, nil
}
