package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/meetmesh/core"
)

// ScriptedExtractor maps reply texts to preferences. Unknown texts yield a
// null preference. Texts registered with Fail yield an error.
type ScriptedExtractor struct {
	mu      sync.Mutex
	script  map[string]*core.TimePreference
	failing map[string]error
	calls   []string
}

// NewScriptedExtractor creates an empty script.
func NewScriptedExtractor() *ScriptedExtractor {
	return &ScriptedExtractor{
		script:  map[string]*core.TimePreference{},
		failing: map[string]error{},
	}
}

// On maps text to a strict preference at start (chainable).
func (s *ScriptedExtractor) On(text string, start time.Time) *ScriptedExtractor {
	p := core.PreferenceAt(start, 0)
	return s.OnPreference(text, &p)
}

// Accept maps text to a flexible, label-only acceptance (chainable).
func (s *ScriptedExtractor) Accept(text string) *ScriptedExtractor {
	return s.OnPreference(text, &core.TimePreference{TimeLabel: "works for me", Flexibility: core.FlexibilityFlexible})
}

// OnPreference maps text to pref (chainable).
func (s *ScriptedExtractor) OnPreference(text string, pref *core.TimePreference) *ScriptedExtractor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[text] = pref
	return s
}

// Fail makes text produce err (chainable).
func (s *ScriptedExtractor) Fail(text string, err error) *ScriptedExtractor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[text] = err
	return s
}

// Extract implements core.Extractor.
func (s *ScriptedExtractor) Extract(_ context.Context, text string, _ *core.TimePreference) (*core.TimePreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, text)

	if err, ok := s.failing[text]; ok {
		return nil, err
	}

	p, ok := s.script[text]
	if !ok || p == nil {
		return nil, nil
	}

	cp := *p

	return &cp, nil
}

// Calls returns the texts seen so far.
func (s *ScriptedExtractor) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

var _ core.Extractor = (*ScriptedExtractor)(nil)
