// Package coordination implements the negotiation state machine of a single
// meeting.
//
// An Engine is created per meeting from the request and the resolved
// participant profiles. Start promotes the main coordinator; RecordReply
// applies replies and reports what the caller should do next through a
// core.NegotiationOutcome; Advance moves negotiation to the next participant;
// Finalize reduces the confirmed preferences to the agreed time.
//
// The engine performs no I/O other than calling its core.Extractor. Rendering,
// sending and waiting are the caller's job (see package engine).
package coordination
