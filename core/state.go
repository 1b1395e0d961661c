package core

import "slices"

// Outcome is the terminal (or in-progress) result of one meeting negotiation.
type Outcome string

const (
	OutcomeInProgress Outcome = "IN_PROGRESS"
	OutcomeFinalized  Outcome = "FINALIZED"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
	OutcomeFailed     Outcome = "FAILED"
	OutcomeCancelled  Outcome = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (o Outcome) IsTerminal() bool { return o != OutcomeInProgress && o != "" }

// CoordinationState is the per-meeting aggregate. AgreedTime is set if and
// only if Outcome is OutcomeFinalized.
type CoordinationState struct {
	MeetingID       string                                 `json:"meeting_id"`
	Request         MeetingRequest                         `json:"request"`
	Sequence        ParticipantSequence                    `json:"sequence"`
	Sessions        map[ParticipantRef]*NegotiationSession `json:"sessions"`
	MainCoordinator ParticipantRef                         `json:"main_coordinator"`
	AgreedTime      *TimePreference                        `json:"agreed_time,omitempty"`
	Outcome         Outcome                                `json:"outcome"`
}

// Session returns the session for ref.
func (s CoordinationState) Session(ref ParticipantRef) (*NegotiationSession, bool) {
	sess, ok := s.Sessions[ref]
	return sess, ok
}

// Negotiating returns the refs currently in NEGOTIATING, in sequence order.
func (s CoordinationState) Negotiating() []ParticipantRef {
	var refs []ParticipantRef
	for _, p := range s.Sequence {
		if sess, ok := s.Sessions[p]; ok && sess.Status == StatusNegotiating {
			refs = append(refs, p)
		}
	}
	return refs
}

// AllConfirmed reports whether every sequenced session is CONFIRMED.
func (s CoordinationState) AllConfirmed() bool {
	if len(s.Sequence) == 0 {
		return false
	}
	for _, p := range s.Sequence {
		sess, ok := s.Sessions[p]
		if !ok || sess.Status != StatusConfirmed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s CoordinationState) Clone() CoordinationState {
	c := s
	c.Request = s.Request.Clone()
	c.Sequence = slices.Clone(s.Sequence)
	if s.Sessions != nil {
		c.Sessions = make(map[ParticipantRef]*NegotiationSession, len(s.Sessions))
		for k, v := range s.Sessions {
			c.Sessions[k] = v.Clone()
		}
	}
	c.AgreedTime = clonePreference(s.AgreedTime)
	return c
}
