// Package engine runs meeting negotiations end to end.
//
// The Engine is the orchestration layer on top of package coordination. For
// every scheduled meeting it derives the negotiation order, creates a
// coordination.Engine and starts a loop goroutine that talks to participants
// through the configured collaborators.
//
// # Core Responsibilities
//
// Setup:
//   - Participant lookup through an optional core.Directory
//   - Priority sequencing through priority.Engine
//   - Setup failures are returned from Schedule before any session exists
//
// Orchestration:
//   - Render and send every prompt the coordination engine produces
//   - Apply inbound replies one at a time from the meeting's inbox
//   - Re-prompt on conflict, confirm and advance on success
//   - Finalize and notify every participant once all have confirmed
//
// Budget:
//   - A ticker with Config.WaitInterval defines wait cycles
//   - Config.AttemptBudget cycles without completion end the meeting TIMED_OUT
//   - Replies never reset the budget
//
// Lifecycle:
//   - Cancel or a cancelled context ends a meeting CANCELLED without notice
//   - Structural errors such as a reply from an unknown participant end it FAILED
//   - Every terminal failure carries the last core.CoordinationState
//
// # Event Flow
//
//  1. Schedule validates the request and sends the coordinator's OPEN prompt
//  2. Replies arrive through Deliver (bound automatically for transports
//     that support it) and are queued in the meeting's inbox
//  3. The loop applies each reply and emits core.Event values as it goes
//  4. The event and error channels close when the meeting ends
//
// # Example
//
//	tr := transport.NewInMemoryTransport().
//	    Script("alice", "Monday 10:00").
//	    Script("bob", "that works")
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Transport = tr
//	})
//
//	id, events, err := eng.ScheduleSync(ctx, req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	state, _ := eng.Snapshot(id)
//	fmt.Println(state.AgreedTime, len(events))
//
// # Snapshots
//
// Each transition saves a snapshot to the configured core.SnapshotStore, so
// Snapshot keeps answering after a meeting ended and a caller can resume
// from the collected preferences.
package engine
