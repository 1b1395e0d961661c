package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoParticipants is returned for a request without participants.
	ErrNoParticipants = errors.New("meeting request has no participants")
	// ErrInvalidRequest wraps structural request problems.
	ErrInvalidRequest = errors.New("invalid meeting request")
	// ErrDuplicateParticipant is returned when a ref appears twice.
	ErrDuplicateParticipant = errors.New("duplicate participant")
	// ErrEmptySequence is returned by Start for an empty participant sequence.
	ErrEmptySequence = errors.New("participant sequence is empty")
	// ErrInvalidSequence is returned when a sequence is not a permutation of
	// the request participants.
	ErrInvalidSequence = errors.New("invalid participant sequence")
	// ErrUnresolvedPreference is returned when a preference cannot be turned
	// into a concrete start time.
	ErrUnresolvedPreference = errors.New("time preference cannot be resolved")
	// ErrStaleReply marks a duplicate or replayed reply; callers ignore it.
	ErrStaleReply = errors.New("stale reply")
	// ErrNotReady is returned by Finalize before all sessions confirmed.
	ErrNotReady = errors.New("not all participants confirmed")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("negotiation already started")
	// ErrNotStarted is returned by transitions that require Start first.
	ErrNotStarted = errors.New("negotiation not started")
	// ErrTerminated is returned by transitions after a terminal outcome.
	ErrTerminated = errors.New("negotiation already terminated")
	// ErrParticipantNotFound is returned by a Directory for an unknown ref.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrMeetingNotFound is returned for an unknown meeting id.
	ErrMeetingNotFound = errors.New("meeting not found")
)

// UnknownParticipantError is returned when a reply names a ref that has no
// session in the meeting.
type UnknownParticipantError struct {
	Participant ParticipantRef
}

func (e *UnknownParticipantError) Error() string {
	return fmt.Sprintf("unknown participant %q", e.Participant)
}

// OutOfSequenceError is returned when an operation targets a participant that
// is not the one the protocol expects.
type OutOfSequenceError struct {
	Participant ParticipantRef
	Expected    ParticipantRef
	Status      SessionStatus
}

func (e *OutOfSequenceError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("participant %q out of sequence (status %s), expected %q", e.Participant, e.Status, e.Expected)
	}
	return fmt.Sprintf("participant %q out of sequence (status %s)", e.Participant, e.Status)
}

// AmbiguousPriorityError is returned when no single main coordinator can be
// selected.
type AmbiguousPriorityError struct {
	Candidates []ParticipantRef
}

func (e *AmbiguousPriorityError) Error() string {
	if len(e.Candidates) == 0 {
		return "ambiguous priority: no candidates"
	}
	refs := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		refs[i] = string(c)
	}
	return "ambiguous priority between " + strings.Join(refs, ", ")
}

// IncompleteError is returned by a Summarizer that could not fill the named
// request fields.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "meeting request incomplete: missing " + strings.Join(e.Missing, ", ")
}

// NegotiationError is delivered on the error channel when a meeting ends
// without agreement. State is a snapshot taken at termination.
type NegotiationError struct {
	MeetingID string
	Outcome   Outcome
	Err       error
	State     CoordinationState
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meeting %s %s: %v", e.MeetingID, strings.ToLower(string(e.Outcome)), e.Err)
	}
	return fmt.Sprintf("meeting %s %s", e.MeetingID, strings.ToLower(string(e.Outcome)))
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// OutcomeOf extracts the terminal outcome carried by err, if any.
func OutcomeOf(err error) (Outcome, bool) {
	var ne *NegotiationError
	if errors.As(err, &ne) {
		return ne.Outcome, true
	}
	return "", false
}
