package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/model"
)

// DefaultSummarizeInstruction is the system prompt of the LLMSummarizer.
const DefaultSummarizeInstruction = `You turn a conversation about a meeting into a structured meeting request.
Answer with a single JSON object and nothing else, using this shape:
{
  "title": "short meeting title",
  "description": "one sentence purpose",
  "category": "interview | performance-review | project-meeting | training | other",
  "participants": [{"name": "person name", "role": "interviewer | superior | project-lead | instructor | requester | "}],
  "organizer": "name of the person asking for the meeting",
  "duration_minutes": 60,
  "time_range": {"label": "e.g. next week", "start": "YYYY-MM-DD", "end": "YYYY-MM-DD"},
  "constraints": {"workday_only": false, "working_hours": {"from": 9, "to": 17}, "description": ""}
}
Leave fields empty when the conversation does not say. Never invent participants.`

// NameResolver maps a person's name to a participant ref.
// directory.InMemoryDirectory implements it.
type NameResolver interface {
	Resolve(name string) (core.ParticipantRef, error)
}

type summary struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Participants []struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"participants"`
	Organizer       string `json:"organizer"`
	DurationMinutes int    `json:"duration_minutes"`
	TimeRange       struct {
		Label string `json:"label"`
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"time_range"`
	Constraints struct {
		WorkdayOnly  bool            `json:"workday_only"`
		WorkingHours *core.HourRange `json:"working_hours"`
		Description  string          `json:"description"`
	} `json:"constraints"`
}

// LLMSummarizerOptions configures an LLMSummarizer.
type LLMSummarizerOptions struct {
	Instruction string
	// Resolver maps names to refs. Without one the names are used as refs.
	Resolver NameResolver
	Location *time.Location
	Logger   logging.Logger
}

// LLMSummarizer turns an intake conversation into a MeetingRequest. It is the
// only component that interprets free-form intake text; the result still has
// to pass the priority engine before a negotiation starts.
type LLMSummarizer struct {
	llm         model.Model
	instruction string
	resolver    NameResolver
	loc         *time.Location
	logger      logging.Logger
}

// NewLLMSummarizer creates a summarizer backed by m.
func NewLLMSummarizer(m model.Model, optFns ...func(o *LLMSummarizerOptions)) *LLMSummarizer {
	opts := LLMSummarizerOptions{
		Instruction: DefaultSummarizeInstruction,
		Location:    time.UTC,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &LLMSummarizer{
		llm:         m,
		instruction: opts.Instruction,
		resolver:    opts.Resolver,
		loc:         opts.Location,
		logger:      opts.Logger,
	}
}

// Summarize implements core.Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, conversation []core.Turn) (core.MeetingRequest, error) {
	if len(conversation) == 0 {
		return core.MeetingRequest{}, &core.IncompleteError{Missing: []string{"title", "participants"}}
	}

	var b strings.Builder
	for _, t := range conversation {
		fmt.Fprintf(&b, "%s: %s\n", t.Speaker, t.Text)
	}

	resp, err := generate(ctx, s.llm, s.logger, model.Request{
		Instructions: s.instruction,
		Messages:     []model.Message{{Role: model.RoleUser, Text: b.String()}},
	})
	if err != nil {
		return core.MeetingRequest{}, fmt.Errorf("summarize conversation: %w", err)
	}

	var sum summary
	if err := json.Unmarshal([]byte(jsonPayload(resp.Text)), &sum); err != nil {
		return core.MeetingRequest{}, fmt.Errorf("summarize conversation: decode answer: %w", err)
	}

	return s.request(sum)
}

func (s *LLMSummarizer) request(sum summary) (core.MeetingRequest, error) {
	var missing []string

	title := strings.TrimSpace(sum.Title)
	if title == "" {
		missing = append(missing, "title")
	}

	names := make([]string, 0, len(sum.Participants))
	for _, p := range sum.Participants {
		if n := strings.TrimSpace(p.Name); n != "" {
			names = append(names, n)
		}
	}

	if len(names) == 0 {
		missing = append(missing, "participants")
	}

	if len(missing) > 0 {
		return core.MeetingRequest{}, &core.IncompleteError{Missing: missing}
	}

	req := core.MeetingRequest{
		Title:       title,
		Description: strings.TrimSpace(sum.Description),
		Category:    normalizeCategory(sum.Category),
		Duration:    time.Duration(sum.DurationMinutes) * time.Minute,
		Constraints: core.Constraints{
			WorkdayOnly:  sum.Constraints.WorkdayOnly,
			WorkingHours: sum.Constraints.WorkingHours,
			Description:  sum.Constraints.Description,
		},
	}

	for _, p := range sum.Participants {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}

		ref, err := s.resolve(name)
		if err != nil {
			return core.MeetingRequest{}, err
		}

		if req.HasParticipant(ref) {
			continue
		}

		req.Participants = append(req.Participants, ref)

		if role := core.MeetingRole(strings.ToLower(strings.TrimSpace(p.Role))); role != "" {
			if req.Roles == nil {
				req.Roles = map[core.ParticipantRef]core.MeetingRole{}
			}
			req.Roles[ref] = role
		}
	}

	if org := strings.TrimSpace(sum.Organizer); org != "" {
		if ref, err := s.resolve(org); err == nil && req.HasParticipant(ref) {
			req.Organizer = ref
		}
	}

	req.TimeRange = core.TimeRange{Label: sum.TimeRange.Label}
	if t, ok := s.date(sum.TimeRange.Start); ok {
		req.TimeRange.Start = t
	}
	if t, ok := s.date(sum.TimeRange.End); ok {
		// A bare end date includes that whole day.
		if t.Hour() == 0 && t.Minute() == 0 {
			t = t.AddDate(0, 0, 1)
		}
		req.TimeRange.End = t
	}

	return req, req.Validate()
}

func (s *LLMSummarizer) resolve(name string) (core.ParticipantRef, error) {
	if s.resolver == nil {
		return core.ParticipantRef(name), nil
	}

	ref, err := s.resolver.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("resolve participant %q: %w", name, err)
	}

	return ref, nil
}

func (s *LLMSummarizer) date(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(v, s.loc)
	if err != nil {
		s.logger.Debug("Ignoring unparsable date", "value", v, "error", err.Error())
		return time.Time{}, false
	}

	return t, true
}

func normalizeCategory(c string) core.Category {
	c = strings.ToLower(strings.TrimSpace(c))
	c = strings.NewReplacer(" ", "-", "_", "-").Replace(c)

	switch core.Category(c) {
	case core.CategoryInterview, core.CategoryPerformanceReview, core.CategoryProjectMeeting, core.CategoryTraining:
		return core.Category(c)
	case "":
		return ""
	}

	switch c {
	case "review", "performance", "appraisal":
		return core.CategoryPerformanceReview
	case "project", "project-sync", "standup":
		return core.CategoryProjectMeeting
	case "course", "workshop":
		return core.CategoryTraining
	default:
		return core.CategoryOther
	}
}

var _ core.Summarizer = (*LLMSummarizer)(nil)
