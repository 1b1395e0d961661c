package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/meetmesh/agent"
	"github.com/hupe1980/meetmesh/coordination"
	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/metrics"
	"github.com/hupe1980/meetmesh/priority"
	"github.com/hupe1980/meetmesh/session"
	"github.com/hupe1980/meetmesh/transport"
)

// ErrInboxFull is returned by Deliver when a meeting's inbox has no free slot.
var ErrInboxFull = errors.New("meeting inbox is full")

// Config defines tuning parameters for the Engine's operational behavior.
//
// The configuration covers the negotiation budget and the resources each
// meeting may use:
//   - Budget: how many wait cycles a meeting may spend and how long each is
//   - Buffering: event channel and inbox sizes
//   - Concurrency: how many meetings may run at once
//   - Pacing: an optional shared rate limit on outbound sends
//
// Example:
//
//	cfg := engine.DefaultConfig
//	cfg.WaitInterval = time.Minute
//	cfg.AttemptBudget = 120
type Config struct {
	// AttemptBudget is the number of wait cycles a meeting may spend before
	// it times out. Replies do not reset it. 0 means unlimited.
	AttemptBudget int

	// WaitInterval is the length of one wait cycle.
	WaitInterval time.Duration

	// EventBufferSize sets the buffer of each meeting's event channel. Events
	// that do not fit are dropped with a warning so a slow consumer never
	// stalls a negotiation.
	EventBufferSize int

	// InboxSize sets the buffer of each meeting's reply inbox. Deliver fails
	// with ErrInboxFull rather than block when it is exhausted.
	InboxSize int

	// MaxConcurrentMeetings limits the number of meetings negotiating at
	// once. Schedule blocks until a slot frees up. 0 means unlimited.
	MaxConcurrentMeetings int

	// SendRate and SendBurst pace outbound sends across all meetings.
	SendRate  rate.Limit
	SendBurst int

	// Location interprets times stated without a zone.
	Location *time.Location
}

// DefaultConfig provides the default configuration values:
//   - AttemptBudget: 60 cycles
//   - WaitInterval: 5s, for a 5 minute ceiling per meeting
//   - EventBufferSize: 100
//   - InboxSize: 16
//   - MaxConcurrentMeetings: 10
//   - SendRate: unlimited
var DefaultConfig = Config{
	AttemptBudget:         60,
	WaitInterval:          5 * time.Second,
	EventBufferSize:       100,
	InboxSize:             16,
	MaxConcurrentMeetings: 10,
	SendRate:              rate.Inf,
	SendBurst:             1,
	Location:              time.UTC,
}

// Options configures an Engine instance using the functional options pattern.
//
// Every collaborator has a default so a bare New() runs meetings end to end
// in process:
//   - Priority: priority.New() with the default rule table
//   - Renderer: agent.TemplateRenderer
//   - Extractor: agent.PatternExtractor
//   - Transport: transport.InMemoryTransport (replies must be delivered by hand)
//   - SnapshotStore: session.InMemoryStore
//   - Directory: none; participants are used by ref with no availability
//   - Logger: logging.NoOpLogger
//   - Metrics: none
//
// Example:
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Transport = natsTransport
//	    o.Extractor = agent.NewLLMExtractor(m)
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Priority derives each meeting's negotiation order.
	Priority *priority.Engine

	// Renderer phrases outbound messages.
	Renderer core.Renderer

	// Extractor reads time preferences out of replies.
	Extractor core.Extractor

	// Transport delivers outbound messages. When it can be bound to a reply
	// sink (like transport.InMemoryTransport), it is bound to Deliver.
	Transport core.Transport

	// Directory resolves participant profiles. When set, every participant
	// of a request must be known to it.
	Directory core.Directory

	// SnapshotStore receives a snapshot of every state transition.
	SnapshotStore core.SnapshotStore

	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// Metrics records negotiation metrics. nil disables them.
	Metrics *metrics.Collector

	// Now returns the current time; overridable in tests.
	Now func() time.Time
}

// Engine runs meeting negotiations. Each scheduled meeting gets its own
// coordination.Engine, its own goroutine and its own inbox; the Engine ties
// them to the shared collaborators.
//
// Core Responsibilities:
//   - Setup: participant lookup, priority sequencing and session creation
//   - Orchestration: one loop per meeting that sends prompts, applies
//     replies and enforces the attempt budget
//   - Routing: Deliver hands inbound replies to the right meeting
//   - Lifecycle: cancellation, shutdown and bounded concurrency
//
// Concurrency Model:
//   - A meeting's state is mutated only by its loop goroutine
//   - Deliver never blocks; a full inbox is reported to the caller
//   - A semaphore bounds concurrently running meetings
//
// Example Usage:
//
//	eng := engine.New()
//	id, events, errs, err := eng.Schedule(ctx, req)
//	if err != nil {
//	    return err // setup failure, nothing was started
//	}
//
//	// replies arrive from the transport
//	_ = eng.Deliver(id, core.Reply{Participant: "alice", Text: "Tuesday 10:00"})
//
//	for ev := range events {
//	    fmt.Println(ev.Kind, ev.Participant)
//	}
//	if err := <-errs; err != nil {
//	    var ne *core.NegotiationError
//	    if errors.As(err, &ne) {
//	        fmt.Println(ne.Outcome, ne.State.Sessions)
//	    }
//	}
type Engine struct {
	config    Config
	priority  *priority.Engine
	renderer  core.Renderer
	extractor core.Extractor
	transport core.Transport
	directory core.Directory
	store     core.SnapshotStore
	logger    logging.Logger
	metrics   *metrics.Collector
	now       func() time.Time

	limiter *rate.Limiter
	sem     chan struct{}

	registry *Registry

	closeOnce sync.Once
}

// New creates a new Engine with sensible defaults and optional configuration.
//
// Default Services:
//   - Renderer: deterministic text templates
//   - Extractor: deterministic date/time pattern matching
//   - Transport: in-memory outbox
//   - SnapshotStore: in-memory snapshots
//
// The returned Engine is ready for use and safe for concurrent access.
//
// Resource Management:
// The Engine does not take ownership of provided services. Callers remain
// responsible for closing transports and stores they supplied.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:        DefaultConfig,
		SnapshotStore: session.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
		Now:           time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = DefaultConfig.WaitInterval
	}

	if cfg.EventBufferSize < 0 {
		cfg.EventBufferSize = 0
	}

	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig.InboxSize
	}

	if cfg.SendRate == 0 {
		cfg.SendRate = rate.Inf
	}

	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 1
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if opts.Priority == nil {
		opts.Priority = priority.New()
	}

	if opts.Renderer == nil {
		opts.Renderer = agent.NewTemplateRenderer()
	}

	if opts.Extractor == nil {
		opts.Extractor = agent.NewPatternExtractor(func(o *agent.PatternExtractorOptions) {
			o.Location = cfg.Location
			o.Now = opts.Now
		})
	}

	if opts.Transport == nil {
		opts.Transport = transport.NewInMemoryTransport()
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		config:    cfg,
		priority:  opts.Priority,
		renderer:  opts.Renderer,
		extractor: opts.Extractor,
		transport: opts.Transport,
		directory: opts.Directory,
		store:     opts.SnapshotStore,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		limiter:   rate.NewLimiter(cfg.SendRate, cfg.SendBurst),
		registry:  NewRegistry(),
	}

	if cfg.MaxConcurrentMeetings > 0 {
		e.sem = make(chan struct{}, cfg.MaxConcurrentMeetings)
	}

	if b, ok := opts.Transport.(interface{ Bind(transport.ReplySink) }); ok {
		b.Bind(e.Deliver)
	}

	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.config }

// Registry returns the registry of running meetings.
func (e *Engine) Registry() *Registry { return e.registry }

// Schedule starts negotiating req asynchronously and returns channels for
// real-time event streaming.
//
// Setup happens synchronously and any failure is returned directly, before
// any session exists:
//   - core.ErrEmptySequence for a request without participants
//   - *core.UnknownParticipantError when a Directory does not know a participant
//   - *core.AmbiguousPriorityError when no single coordinator can be chosen
//   - validation errors from the request itself
//
// On success the returned meeting id can be used with Deliver, Cancel and
// Snapshot. The event channel streams progress and is closed when the
// meeting ends; the error channel receives at most one *core.NegotiationError
// (for TIMED_OUT, FAILED or CANCELLED) and is closed afterwards. A FINALIZED
// meeting closes the error channel without sending.
//
// Cancelling ctx cancels the meeting.
func (e *Engine) Schedule(ctx context.Context, req core.MeetingRequest) (string, <-chan core.Event, <-chan error, error) {
	if len(req.Participants) == 0 {
		return "", nil, nil, fmt.Errorf("%w: %w", core.ErrEmptySequence, core.ErrNoParticipants)
	}

	people, err := e.lookup(ctx, req.Participants)
	if err != nil {
		return "", nil, nil, err
	}

	seq, err := e.priority.Sequence(req, people)
	if err != nil {
		return "", nil, nil, fmt.Errorf("derive participant sequence: %w", err)
	}

	meetingID := core.NewID()
	log := logging.ForMeeting(e.logger, "engine", meetingID)

	coord := coordination.New(meetingID, req, people, e.extractor, func(o *coordination.Options) {
		o.Location = e.config.Location
		o.Now = e.now
		o.Logger = log
	})

	first, err := coord.Start(seq)
	if err != nil {
		return "", nil, nil, err
	}

	if err := e.acquire(ctx); err != nil {
		return "", nil, nil, err
	}

	meetingCtx, cancel := context.WithCancel(ctx)

	m := &meeting{
		id:     meetingID,
		coord:  coord,
		inbox:  make(chan core.Reply, e.config.InboxSize),
		events: make(chan core.Event, e.config.EventBufferSize),
		errs:   make(chan error, 1),
		cancel: cancel,
		done:   make(chan struct{}),
		log:    log,
	}

	if err := e.registry.add(m); err != nil {
		cancel()
		e.release()
		return "", nil, nil, err
	}

	e.metrics.MeetingStarted()
	log.Info("Meeting scheduled", "coordinator", string(seq.Coordinator()), "participants", len(seq))

	go e.run(meetingCtx, m, first)

	return meetingID, m.events, m.errs, nil
}

// ScheduleSync runs a meeting to completion and returns all generated
// events. The returned error is nil for a FINALIZED meeting and a
// *core.NegotiationError otherwise.
//
// This method buffers all events in memory and blocks until the meeting
// ends or ctx is done.
func (e *Engine) ScheduleSync(ctx context.Context, req core.MeetingRequest) (string, []core.Event, error) {
	meetingID, eventsCh, errorsCh, err := e.Schedule(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var (
		events   []core.Event
		terminal error
	)

	for eventsCh != nil || errorsCh != nil {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				eventsCh = nil
				continue
			}
			events = append(events, ev)

		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			terminal = err
		}
	}

	return meetingID, events, terminal
}

// Deliver routes an inbound reply to a running meeting. It never blocks.
// The reply's MeetingID is set to meetingID.
func (e *Engine) Deliver(meetingID string, reply core.Reply) error {
	m, ok := e.registry.get(meetingID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrMeetingNotFound, meetingID)
	}

	reply.MeetingID = meetingID

	select {
	case m.inbox <- reply:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInboxFull, meetingID)
	}
}

// Cancel stops a running meeting. The meeting ends CANCELLED and no notice
// is sent to its participants.
func (e *Engine) Cancel(meetingID string) error {
	m, ok := e.registry.get(meetingID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrMeetingNotFound, meetingID)
	}

	m.cancel()

	return nil
}

// Wait blocks until the meeting has ended or ctx is done. Unknown or already
// finished meetings return immediately.
func (e *Engine) Wait(ctx context.Context, meetingID string) error {
	m, ok := e.registry.get(meetingID)
	if !ok {
		return nil
	}

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state of a running meeting, or the last
// stored snapshot of a finished one.
func (e *Engine) Snapshot(meetingID string) (core.CoordinationState, error) {
	if m, ok := e.registry.get(meetingID); ok {
		return m.coord.Status(), nil
	}

	if e.store == nil {
		return core.CoordinationState{}, fmt.Errorf("%w: %s", core.ErrMeetingNotFound, meetingID)
	}

	return e.store.Get(meetingID)
}

// Shutdown cancels every running meeting and waits for their loops to exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	var err error

	e.closeOnce.Do(func() {
		for _, m := range e.registry.all() {
			m.cancel()
		}

		for _, m := range e.registry.all() {
			select {
			case <-m.done:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
	})

	return err
}

func (e *Engine) lookup(ctx context.Context, refs []core.ParticipantRef) (map[core.ParticipantRef]core.Participant, error) {
	people := make(map[core.ParticipantRef]core.Participant, len(refs))

	for _, ref := range refs {
		if e.directory == nil {
			people[ref] = core.Participant{Ref: ref}
			continue
		}

		p, err := e.directory.Lookup(ctx, ref)
		if err != nil {
			if errors.Is(err, core.ErrParticipantNotFound) {
				return nil, &core.UnknownParticipantError{Participant: ref}
			}
			return nil, fmt.Errorf("lookup %s: %w", ref, err)
		}

		people[ref] = p
	}

	return people, nil
}

func (e *Engine) acquire(ctx context.Context) error {
	if e.sem == nil {
		return nil
	}

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	if e.sem != nil {
		<-e.sem
	}
}
