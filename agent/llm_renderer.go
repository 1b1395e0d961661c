package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/internal/util"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/model"
)

// DefaultRenderInstruction is the system prompt of the LLMRenderer.
const DefaultRenderInstruction = `You are a friendly meeting coordination assistant writing a short chat message to {{.participant}}.
The meeting is "{{.title}}" ({{.duration}}) with {{join ", " .participants}}. The main coordinator is {{.coordinator}}.
Write only the message text, in a natural and concise tone. Do not decide anything that is not stated in the facts.`

var intentGoals = map[core.NegotiationIntent]string{
	core.IntentOpen:             "Explain the meeting and ask for a time preference. If a proposal is given, ask whether the proposed time works.",
	core.IntentRepromptConflict: "Explain politely why the stated time does not work and ask for another time. Offer the suggestion if one is given.",
	core.IntentConfirm:          "Confirm the noted time and thank the participant.",
	core.IntentFinalNotice:      "Announce the final agreed time to all participants.",
}

// LLMRendererOptions configures an LLMRenderer.
type LLMRendererOptions struct {
	Instruction Instruction
	// Fallback renders the message when the model fails or answers empty.
	// nil surfaces the model error instead.
	Fallback core.Renderer
	Logger   logging.Logger
}

// LLMRenderer phrases messages with a language model. It decides only the
// wording; facts come from the render context.
type LLMRenderer struct {
	llm         model.Model
	instruction Instruction
	fallback    core.Renderer
	logger      logging.Logger
}

// NewLLMRenderer creates a renderer backed by m.
func NewLLMRenderer(m model.Model, optFns ...func(o *LLMRendererOptions)) *LLMRenderer {
	opts := LLMRendererOptions{
		Instruction: NewInstructionFromText(DefaultRenderInstruction),
		Fallback:    NewTemplateRenderer(),
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &LLMRenderer{llm: m, instruction: opts.Instruction, fallback: opts.Fallback, logger: opts.Logger}
}

// Render implements core.Renderer.
func (r *LLMRenderer) Render(ctx context.Context, intent core.NegotiationIntent, rc core.RenderContext) (string, error) {
	goal, ok := intentGoals[intent]
	if !ok {
		return "", fmt.Errorf("unknown intent %s", intent)
	}

	raw, err := r.instruction.Resolve(rc)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	state := RenderState(rc)

	instructions, err := util.RenderTemplate(raw, state)
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	facts := map[string]any{}
	for k, v := range state {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		facts[k] = v
	}

	prompt := fmt.Sprintf("Goal: %s\n\nFacts:\n%s", goal, marshalIndent(facts))

	resp, err := generate(ctx, r.llm, r.logger, model.Request{
		Instructions: instructions,
		Messages:     []model.Message{{Role: model.RoleUser, Text: prompt}},
	})

	text := ""
	if err == nil {
		text = strings.TrimSpace(resp.Text)
	}

	if text != "" {
		return text, nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if r.fallback != nil {
		r.logger.Debug("Falling back to template rendering", "intent", string(intent))
		return r.fallback.Render(ctx, intent, rc)
	}

	if err == nil {
		err = model.ErrNoResponse
	}

	return "", fmt.Errorf("render %s: %w", intent, err)
}

var _ core.Renderer = (*LLMRenderer)(nil)
