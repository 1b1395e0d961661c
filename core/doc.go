// Package core provides the foundational domain types and collaborator
// contracts used by meetmesh. It defines:
//
//   - Meeting requests, participants and their pre-resolved availability
//   - Time preferences and the slots they resolve to
//   - Negotiation sessions (per-participant state with turn history)
//   - Coordination state snapshots and terminal outcomes
//   - Orchestration events streamed to callers
//   - Small interfaces for the external collaborators (summarizer, renderer,
//     transport, extractor, directory) and the snapshot store
//
// Implementation concerns (priority rules, the negotiation state machine,
// orchestration, concrete collaborators) live in other packages so custom
// backends can be plugged in without touching the domain contracts.
package core
