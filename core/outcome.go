package core

// NegotiationIntent selects which message the renderer produces.
type NegotiationIntent string

const (
	IntentOpen             NegotiationIntent = "OPEN"
	IntentRepromptConflict NegotiationIntent = "REPROMPT_CONFLICT"
	IntentConfirm          NegotiationIntent = "CONFIRM"
	IntentFinalNotice      NegotiationIntent = "FINAL_NOTICE"
)

// NextAction tells the orchestration loop what to do after a reply.
type NextAction string

const (
	ActionAwaitRetry      NextAction = "AWAIT_RETRY"
	ActionAdvance         NextAction = "ADVANCE"
	ActionReadyToFinalize NextAction = "READY_TO_FINALIZE"
)

// ConflictReason explains why a reply did not confirm.
type ConflictReason string

const (
	ReasonAmbiguous      ConflictReason = "ambiguous"
	ReasonOutOfRange     ConflictReason = "outside_time_range"
	ReasonNotWorkday     ConflictReason = "not_a_workday"
	ReasonOutsideHours   ConflictReason = "outside_working_hours"
	ReasonBusy           ConflictReason = "busy"
	ReasonNotFree        ConflictReason = "not_free"
	ReasonTooShort       ConflictReason = "duration_too_short"
	ReasonAnchorMismatch ConflictReason = "differs_from_coordinator_time"
)

// NegotiationOutcome is the structured result of recording a reply.
type NegotiationOutcome struct {
	Participant ParticipantRef  `json:"participant"`
	Status      SessionStatus   `json:"status"`
	Action      NextAction      `json:"action"`
	Preference  *TimePreference `json:"preference,omitempty"`
	Reason      ConflictReason  `json:"reason,omitempty"`
	Suggestion  *TimePreference `json:"suggestion,omitempty"`
	Next        ParticipantRef  `json:"next,omitempty"` // set when Action is ADVANCE
}

// Prompt is an outbound action requested by the coordination engine: which
// participant to address, with what intent, and the data to render.
type Prompt struct {
	Participant ParticipantRef
	Intent      NegotiationIntent
	Context     RenderContext
}
