package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/model"
)

// PreferenceToolName is the tool the LLMExtractor asks the model to call.
const PreferenceToolName = "record_time_preference"

// DefaultExtractInstruction is the system prompt of the LLMExtractor.
const DefaultExtractInstruction = `You read replies from meeting participants and record the time preference they state.
Always call the record_time_preference tool exactly once.
Set stated=false when the reply states no usable time and does not accept the proposal.
Set accepts_proposal=true when the reply agrees to the proposed time.
Format specific_time as YYYY-MM-DD HH:MM in the participant's local time.`

// preferenceArgs are the arguments of the record_time_preference tool, as
// declared by preferenceToolArgs.
type preferenceArgs struct {
	Stated          bool   `json:"stated"`
	AcceptsProposal bool   `json:"accepts_proposal,omitempty"`
	TimeLabel       string `json:"time_label,omitempty"`
	SpecificTime    string `json:"specific_time,omitempty"`
	Flexibility     string `json:"flexibility,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// LLMExtractorOptions configures an LLMExtractor.
type LLMExtractorOptions struct {
	Instruction string
	Location    *time.Location
	Logger      logging.Logger
}

// LLMExtractor reads preferences out of replies with a language model. The
// model answers through the record_time_preference tool call; a bare JSON
// answer is accepted too.
type LLMExtractor struct {
	llm         model.Model
	instruction string
	loc         *time.Location
	logger      logging.Logger
}

// NewLLMExtractor creates an extractor backed by m.
func NewLLMExtractor(m model.Model, optFns ...func(o *LLMExtractorOptions)) *LLMExtractor {
	opts := LLMExtractorOptions{
		Instruction: DefaultExtractInstruction,
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

	return &LLMExtractor{
		llm:         m,
		instruction: opts.Instruction,
		loc:         opts.Location,
		logger:      opts.Logger,
	}
}

// Extract implements core.Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, text string, proposal *core.TimePreference) (*core.TimePreference, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var b strings.Builder
	if proposal != nil {
		fmt.Fprintf(&b, "Proposed time: %s\n", proposal)
	} else {
		b.WriteString("No time has been proposed yet.\n")
	}
	fmt.Fprintf(&b, "Reply: %s", text)

	resp, err := generate(ctx, e.llm, e.logger, model.Request{
		Instructions: e.instruction,
		Messages:     []model.Message{{Role: model.RoleUser, Text: b.String()}},
		Tools: []model.ToolDefinition{{
			Name:        PreferenceToolName,
			Description: "Record the time preference stated in a participant reply.",
			Parameters:  preferenceTool.schema,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("extract preference: %w", err)
	}

	args, err := e.arguments(resp)
	if err != nil {
		return nil, fmt.Errorf("extract preference: %w", err)
	}

	return e.preference(args, text, proposal)
}

func (e *LLMExtractor) arguments(resp model.Response) (preferenceArgs, error) {
	raw := []byte(jsonPayload(resp.Text))

	for _, call := range resp.ToolCalls {
		if call.Name == PreferenceToolName {
			raw = call.Arguments
			break
		}
	}

	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return preferenceArgs{}, fmt.Errorf("decode tool arguments: %w", err)
	}

	if err := preferenceTool.check(params); err != nil {
		return preferenceArgs{}, err
	}

	var args preferenceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return preferenceArgs{}, fmt.Errorf("decode tool arguments: %w", err)
	}

	return args, nil
}

func (e *LLMExtractor) preference(args preferenceArgs, text string, proposal *core.TimePreference) (*core.TimePreference, error) {
	if !args.Stated && !args.AcceptsProposal {
		return nil, nil
	}

	flex := core.Flexibility(strings.ToLower(strings.TrimSpace(args.Flexibility)))
	if flex != core.FlexibilityStrict && flex != core.FlexibilityFlexible {
		flex = ""
	}

	if args.AcceptsProposal && proposal != nil && args.SpecificTime == "" {
		cp := *proposal
		if flex != "" {
			cp.Flexibility = flex
		}
		return &cp, nil
	}

	p := core.TimePreference{TimeLabel: args.TimeLabel, Flexibility: flex}
	if p.TimeLabel == "" {
		p.TimeLabel = strings.TrimSpace(text)
	}

	if args.DurationMinutes > 0 {
		p.Duration = time.Duration(args.DurationMinutes) * time.Minute
	}

	if args.SpecificTime != "" {
		start, err := e.normalize(args.SpecificTime)
		if err != nil {
			e.logger.Debug("Discarding unparsable specific time", "specific_time", args.SpecificTime, "error", err.Error())
		} else {
			p.SpecificTime = start.Format(core.PreferenceLayout)
			if p.Flexibility == "" {
				p.Flexibility = core.FlexibilityStrict
			}
		}
	}

	if p.SpecificTime == "" && p.Flexibility == "" {
		p.Flexibility = core.FlexibilityFlexible
	}

	return &p, nil
}

// normalize accepts whatever date format the model chose.
func (e *LLMExtractor) normalize(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(core.PreferenceLayout, s, e.loc); err == nil {
		return t, nil
	}

	t, err := dateparse.ParseIn(s, e.loc)
	if err != nil {
		return time.Time{}, errors.Join(core.ErrUnresolvedPreference, err)
	}

	return t.In(e.loc), nil
}

var _ core.Extractor = (*LLMExtractor)(nil)
