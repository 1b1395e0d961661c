package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/model"
)

type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, err error)
}

// generate runs one model call and logs its latency and token usage.
func generate(ctx context.Context, m model.Model, logger logging.Logger, req model.Request) (model.Response, error) {
	start := time.Now()
	resp, err := model.Collect(ctx, m, req)
	dur := time.Since(start)

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}

	if l, ok := logger.(llmCallLogger); ok {
		l.LogLLMCall(m.Info().Name, tokens, dur, err)
	} else if err != nil {
		logger.Warn("LLM call failed", "model", m.Info().Name, "error", err.Error())
	}

	return resp, err
}

// jsonPayload strips markdown code fences and surrounding prose from a model
// answer that is supposed to be a JSON object.
func jsonPayload(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}

	return text[start : end+1]
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
