package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/internal/util"
)

// DefaultTemplates are the message templates of the TemplateRenderer. They
// are expanded with the fields returned by RenderState.
var DefaultTemplates = map[core.NegotiationIntent]string{
	core.IntentOpen: `Hi {{.participant}}, {{if .proposal}}{{.coordinator}} proposed {{.proposal}} for "{{.title}}" ({{.duration}}). Does that work for you?` +
		`{{else}}we are scheduling "{{.title}}" ({{.duration}}) with {{join ", " .participants}}. When would suit you{{if .window}} {{.window}}{{end}}?{{end}}`,
	core.IntentRepromptConflict: `Sorry {{.participant}}, {{.reason_text}}.` +
		`{{if .suggestion}} Would {{.suggestion}} work instead?{{else}} Could you suggest another time?{{end}}`,
	core.IntentConfirm:     `Thanks {{.participant}}, {{.proposal}} is noted for "{{.title}}".`,
	core.IntentFinalNotice: `"{{.title}}" is scheduled for {{.agreed_time}} ({{.duration}}) with {{join ", " .participants}}.{{if .description}} {{.description}}{{end}}`,
}

var reasonTexts = map[core.ConflictReason]string{
	core.ReasonAmbiguous:      "I could not make out a time from your reply",
	core.ReasonOutOfRange:     "that time is outside the scheduling window",
	core.ReasonNotWorkday:     "the meeting has to be on a workday",
	core.ReasonOutsideHours:   "that time is outside working hours",
	core.ReasonBusy:           "your calendar is busy then",
	core.ReasonNotFree:        "that time is not in your free slots",
	core.ReasonTooShort:       "the meeting needs more time than that",
	core.ReasonAnchorMismatch: "that differs from the time already agreed with the coordinator",
}

// TemplateRendererOptions configures a TemplateRenderer.
type TemplateRendererOptions struct {
	// Templates overrides DefaultTemplates per intent.
	Templates map[core.NegotiationIntent]string
}

// TemplateRenderer is a deterministic core.Renderer over text templates.
type TemplateRenderer struct {
	templates map[core.NegotiationIntent]string
}

// NewTemplateRenderer creates a renderer using DefaultTemplates unless
// overridden.
func NewTemplateRenderer(optFns ...func(o *TemplateRendererOptions)) *TemplateRenderer {
	opts := TemplateRendererOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	templates := make(map[core.NegotiationIntent]string, len(DefaultTemplates))
	for k, v := range DefaultTemplates {
		templates[k] = v
	}

	for k, v := range opts.Templates {
		templates[k] = v
	}

	return &TemplateRenderer{templates: templates}
}

// Render implements core.Renderer.
func (r *TemplateRenderer) Render(_ context.Context, intent core.NegotiationIntent, rc core.RenderContext) (string, error) {
	tmpl, ok := r.templates[intent]
	if !ok {
		return "", fmt.Errorf("no template for intent %s", intent)
	}

	out, err := util.RenderTemplate(tmpl, RenderState(rc))
	if err != nil {
		return "", fmt.Errorf("render %s: %w", intent, err)
	}

	return strings.TrimSpace(out), nil
}

// RenderState flattens a render context into template fields. Absent
// optional values are empty strings so templates can test them with if.
func RenderState(rc core.RenderContext) map[string]any {
	participants := make([]any, len(rc.Participants))
	for i, p := range rc.Participants {
		participants[i] = p
	}

	return map[string]any{
		"meeting_id":   rc.MeetingID,
		"title":        rc.Title,
		"description":  rc.Description,
		"category":     string(rc.Category),
		"participant":  rc.ParticipantName,
		"coordinator":  rc.CoordinatorName,
		"participants": participants,
		"duration":     formatDuration(rc.Duration),
		"window":       formatRange(rc.TimeRange),
		"constraints":  formatConstraints(rc.Constraints),
		"proposal":     formatPreference(rc.Proposal),
		"reason":       string(rc.Reason),
		"reason_text":  reasonText(rc.Reason),
		"suggestion":   formatPreference(rc.Suggestion),
		"agreed_time":  formatPreference(rc.AgreedTime),
	}
}

func reasonText(r core.ConflictReason) string {
	if r == "" {
		return "that time does not work"
	}

	if text, ok := reasonTexts[r]; ok {
		return text
	}

	return string(r)
}

func formatPreference(p *core.TimePreference) string {
	if p == nil {
		return ""
	}

	if p.SpecificTime != "" {
		if t, err := p.Start(time.UTC); err == nil {
			return t.Format("Mon Jan 2 15:04")
		}
		return p.SpecificTime
	}

	return p.TimeLabel
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		d = core.DefaultMeetingDuration
	}

	h, m := int(d.Hours()), int(d.Minutes())%60

	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0 && h == 1:
		return "1 hour"
	case m == 0:
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%dh %02dmin", h, m)
	}
}

func formatRange(r core.TimeRange) string {
	switch {
	case r.Label != "":
		return r.Label
	case !r.Start.IsZero() && !r.End.IsZero():
		return fmt.Sprintf("between %s and %s", r.Start.Format("Mon Jan 2"), r.End.Format("Mon Jan 2"))
	case !r.Start.IsZero():
		return "from " + r.Start.Format("Mon Jan 2")
	case !r.End.IsZero():
		return "before " + r.End.Format("Mon Jan 2")
	default:
		return ""
	}
}

func formatConstraints(c core.Constraints) string {
	var parts []string

	if c.WorkdayOnly {
		parts = append(parts, "workdays only")
	}

	if c.WorkingHours != nil {
		parts = append(parts, fmt.Sprintf("between %02d:00 and %02d:00", c.WorkingHours.From, c.WorkingHours.To))
	}

	if c.Description != "" {
		parts = append(parts, c.Description)
	}

	return strings.Join(parts, ", ")
}

var _ core.Renderer = (*TemplateRenderer)(nil)
