package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/meetmesh"
	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/directory"
	"github.com/hupe1980/meetmesh/engine"
	"github.com/hupe1980/meetmesh/priority"
	"github.com/hupe1980/meetmesh/transport"
	natstransport "github.com/hupe1980/meetmesh/transport/nats"
)

type scheduleFlags struct {
	scenario string
	rules    string
	budget   int
	interval time.Duration
	natsURL  string
	output   string
}

func NewScheduleCmd(deps *Dependencies) *cobra.Command {
	var f scheduleFlags

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run a scripted meeting negotiation",
		Long: "Runs the negotiation described by a scenario file. Participant replies come from the scenario's " +
			"replies section, or from NATS when --nats is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runSchedule(ctx, deps, f)
		},
	}

	cmd.Flags().StringVar(&f.scenario, "scenario", "", "scenario YAML file")
	cmd.Flags().StringVar(&f.rules, "rules", "", "priority rule table YAML")
	cmd.Flags().IntVar(&f.budget, "budget", engine.DefaultConfig.AttemptBudget, "wait cycles before a meeting times out")
	cmd.Flags().DurationVar(&f.interval, "interval", 100*time.Millisecond, "length of one wait cycle")
	cmd.Flags().StringVar(&f.natsURL, "nats", "", "NATS server URL; exchange messages over NATS instead of the scenario script")
	cmd.Flags().StringVar(&f.output, "output", "text", "output format (text, json)")

	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func runSchedule(ctx context.Context, deps *Dependencies, f scheduleFlags) error {
	logger, err := deps.Logger()
	if err != nil {
		return err
	}

	sc, err := LoadScenario(f.scenario)
	if err != nil {
		return err
	}

	table, err := loadRules(f.rules)
	if err != nil {
		return err
	}

	loc, err := sc.Loc()
	if err != nil {
		return err
	}

	var tr core.Transport
	if f.natsURL != "" {
		nt, err := natstransport.Connect(f.natsURL, func(o *natstransport.Options) { o.Logger = logger })
		if err != nil {
			return err
		}
		defer func() { _ = nt.Close() }()
		tr = nt
	} else {
		mem := transport.NewInMemoryTransport()
		for p, replies := range sc.Replies {
			mem.Script(p, replies...)
		}
		tr = mem
	}

	var dir core.Directory
	if people := sc.Participants(); len(people) > 0 {
		dir = directory.NewInMemoryDirectory(people...)
	}

	cfg := engine.DefaultConfig
	cfg.AttemptBudget = f.budget
	cfg.WaitInterval = f.interval
	cfg.Location = loc

	mesh := meetmesh.New(func(o *meetmesh.Options) {
		o.EngineConfig = cfg
		o.Priority = priority.New(func(o *priority.Options) { o.Rules = table })
		o.Transport = tr
		o.Directory = dir
		o.Logger = logger
		if !sc.Now.IsZero() {
			now := sc.Now
			o.Now = func() time.Time { return now }
		}
	})

	if nt, ok := tr.(*natstransport.Transport); ok {
		if err := nt.Listen(mesh.Deliver); err != nil {
			return err
		}
	}

	id, events, errs, err := mesh.Schedule(ctx, sc.MeetingRequest())
	if err != nil {
		return err
	}

	printer := newEventPrinter(deps.Out, f.output)

	var terminal error
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			printer.event(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			terminal = err
		}
	}

	state, err := mesh.Snapshot(id)
	if err != nil {
		return err
	}

	printer.state(state)

	var ne *core.NegotiationError
	if errors.As(terminal, &ne) {
		return fmt.Errorf("meeting %s ended %s: %w", id, ne.Outcome, ne.Err)
	}

	return terminal
}

type eventPrinter struct {
	w    io.Writer
	json bool
}

func newEventPrinter(w io.Writer, format string) *eventPrinter {
	return &eventPrinter{w: w, json: format == "json"}
}

func (p *eventPrinter) event(ev core.Event) {
	if p.json {
		p.encode(ev)
		return
	}

	switch ev.Kind {
	case core.EventMessageSent:
		if ev.Error != "" {
			fmt.Fprintf(p.w, "! %s %s: %s\n", ev.Intent, ev.Participant, ev.Error)
			return
		}
		fmt.Fprintf(p.w, "-> %s [%s] %s\n", ev.Participant, ev.Intent, ev.Text)
	case core.EventReplyRecorded:
		fmt.Fprintf(p.w, "<- %s: %s (%s)\n", ev.Participant, ev.Text, ev.Outcome.Action)
	case core.EventReplyIgnored:
		fmt.Fprintf(p.w, "<- %s: %s (ignored)\n", ev.Participant, ev.Text)
	case core.EventPoll:
		// too chatty for text output
	case core.EventFinalized:
		fmt.Fprintf(p.w, "== finalized: %s\n", ev.AgreedTime)
	default:
		if ev.Error != "" {
			fmt.Fprintf(p.w, "== %s: %s\n", ev.Kind, ev.Error)
			return
		}
		fmt.Fprintf(p.w, "== %s\n", ev.Kind)
	}
}

func (p *eventPrinter) state(s core.CoordinationState) {
	if p.json {
		p.encode(s)
		return
	}

	fmt.Fprintf(p.w, "\nmeeting %s: %s\n", s.MeetingID, s.Outcome)
	for i, ref := range s.Sequence {
		sess, _ := s.Session(ref)
		pref := "-"
		if sess.Preference != nil {
			pref = sess.Preference.String()
		}
		fmt.Fprintf(p.w, "  %d. %-12s %-12s %s\n", i+1, ref, sess.Status, pref)
	}
}

func (p *eventPrinter) encode(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(p.w, "{\"error\":%q}\n", err.Error())
		return
	}
	fmt.Fprintln(p.w, string(b))
}
