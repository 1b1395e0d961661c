// Package meetmesh provides a high-level façade over the negotiation engine
// and its collaborators (renderer, extractor, transport, directory,
// snapshots and logging), enabling meeting time coordination in a few lines.
// Most applications interact with this package by:
//  1. Creating a MeetMesh via New() (optionally overriding default collaborators)
//  2. Scheduling a structured request (Schedule) or an intake conversation
//     (ScheduleConversation)
//  3. Feeding participant replies back through Deliver
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are in-memory and deterministic;
// production deployments typically supply a real transport, a directory and
// a model-backed renderer and extractor.
package meetmesh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/engine"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/metrics"
	"github.com/hupe1980/meetmesh/priority"
	"github.com/hupe1980/meetmesh/session"
)

// ErrNoSummarizer is returned by ScheduleConversation when no Summarizer is
// configured.
var ErrNoSummarizer = errors.New("no summarizer configured")

// Options configures the MeetMesh instance.
type Options struct {
	// Engine configuration (budget, buffers, concurrency, pacing)
	EngineConfig engine.Config

	// Priority derives the negotiation order. Defaults to the built-in rules.
	Priority *priority.Engine

	// Collaborators; nil selects the engine's deterministic default.
	Renderer  core.Renderer
	Extractor core.Extractor
	Transport core.Transport
	Directory core.Directory

	// Summarizer turns intake conversations into requests. Required only for
	// ScheduleConversation.
	Summarizer core.Summarizer

	// SnapshotStore receives state snapshots (defaults to in-memory).
	SnapshotStore core.SnapshotStore

	// Metrics records negotiation metrics; nil disables them.
	Metrics *metrics.Collector

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Now overrides the clock, e.g. to replay a recorded scenario.
	Now func() time.Time
}

// MeetMesh is the high-level façade aggregating the engine and its services.
type MeetMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new MeetMesh instance with optional overrides.
func New(optFns ...func(o *Options)) *MeetMesh {
	opts := Options{
		EngineConfig:  engine.DefaultConfig,
		SnapshotStore: session.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Priority = opts.Priority
		o.Renderer = opts.Renderer
		o.Extractor = opts.Extractor
		o.Transport = opts.Transport
		o.Directory = opts.Directory
		o.SnapshotStore = opts.SnapshotStore
		o.Metrics = opts.Metrics
		o.Logger = opts.Logger
		if opts.Now != nil {
			o.Now = opts.Now
		}
	})

	return &MeetMesh{opts: opts, engine: e}
}

// Engine exposes the underlying engine.
func (m *MeetMesh) Engine() *engine.Engine { return m.engine }

// Schedule starts negotiating req and returns its meeting id together with
// the event and error channels. See engine.Engine.Schedule.
func (m *MeetMesh) Schedule(ctx context.Context, req core.MeetingRequest) (string, <-chan core.Event, <-chan error, error) {
	return m.engine.Schedule(ctx, req)
}

// ScheduleSync runs a negotiation to completion and returns all events. The
// error is nil only for a FINALIZED meeting.
func (m *MeetMesh) ScheduleSync(ctx context.Context, req core.MeetingRequest) (string, []core.Event, error) {
	return m.engine.ScheduleSync(ctx, req)
}

// ScheduleConversation summarizes an intake conversation into a request and
// schedules it. Summarizer errors, including *core.IncompleteError, are
// returned before anything is scheduled.
func (m *MeetMesh) ScheduleConversation(ctx context.Context, conversation []core.Turn) (string, <-chan core.Event, <-chan error, error) {
	if m.opts.Summarizer == nil {
		return "", nil, nil, ErrNoSummarizer
	}

	req, err := m.opts.Summarizer.Summarize(ctx, conversation)
	if err != nil {
		return "", nil, nil, fmt.Errorf("summarize: %w", err)
	}

	return m.engine.Schedule(ctx, req)
}

// Deliver routes an inbound participant reply to its meeting.
func (m *MeetMesh) Deliver(meetingID string, reply core.Reply) error {
	return m.engine.Deliver(meetingID, reply)
}

// Cancel stops a meeting without notifying its participants.
func (m *MeetMesh) Cancel(meetingID string) error {
	return m.engine.Cancel(meetingID)
}

// Snapshot returns the current or last stored state of a meeting.
func (m *MeetMesh) Snapshot(meetingID string) (core.CoordinationState, error) {
	return m.engine.Snapshot(meetingID)
}

// Shutdown cancels all running meetings and waits for them to stop.
func (m *MeetMesh) Shutdown(ctx context.Context) error {
	return m.engine.Shutdown(ctx)
}
