// Package agent contains the language-facing collaborators of a negotiation:
// renderers that phrase outbound messages, extractors that read time
// preferences out of replies, and the summarizer that turns an intake
// conversation into a meeting request.
//
// Each concern has a deterministic implementation and a model-backed one:
//
//   - TemplateRenderer and LLMRenderer implement core.Renderer
//   - PatternExtractor and LLMExtractor implement core.Extractor
//   - LLMSummarizer implements core.Summarizer
//
// The model-backed implementations talk to any model.Model (OpenAI,
// Anthropic or the in-memory mock). They never make protocol decisions: the
// coordination engine decides what is said and to whom, the agents only
// decide how it is worded or how a reply is read.
//
// Instructions are text/template strings resolved against the render state,
// so custom prompts can reference the same fields as the default templates:
//
//	r := agent.NewLLMRenderer(m, func(o *agent.LLMRendererOptions) {
//		o.Instruction = agent.NewInstructionFromText("Write to {{.participant}} in German.")
//	})
package agent
