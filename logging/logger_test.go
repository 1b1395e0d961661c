package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(level LogLevel) (*MeshLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func TestMeshLogger_ContextAttributes(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("engine").WithMeeting("m-1").WithParticipant("alice").Info("hello", "attempt", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}

	for k, want := range map[string]any{"component": "engine", "meeting_id": "m-1", "participant": "alice", "msg": "hello", "attempt": float64(3)} {
		if entry[k] != want {
			t.Fatalf("expected %s=%v, got %v", k, want, entry[k])
		}
	}
}

func TestMeshLogger_WithDoesNotMutateParent(t *testing.T) {
	parent, buf := newBufferLogger(LogLevelDebug)
	_ = parent.WithContext("k", "v").WithMeeting("m-2")

	parent.Info("plain")

	if strings.Contains(buf.String(), "m-2") || strings.Contains(buf.String(), `"k"`) {
		t.Fatalf("parent logger picked up child context: %s", buf.String())
	}
}

func TestMeshLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("d")
	l.Info("i")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}

	l.LogSend("bob", "OPEN", time.Millisecond, errors.New("down"))
	if !strings.Contains(buf.String(), "Message delivery failed") {
		t.Fatalf("expected failed send at error level, got %s", buf.String())
	}
}

func TestMeshLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.LogReply("alice", "ADVANCE", "")
	l.LogOutcome("FINALIZED", time.Second, nil)
	l.LogLLMCall("gpt", 42, time.Second, nil)

	out := buf.String()
	for _, want := range []string{"Reply recorded", "Meeting negotiation ended", "LLM call completed", `"token_count":42`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": LogLevelDebug, "INFO": LogLevelInfo, "warning": LogLevelWarn, "error": LogLevelError, "": LogLevelInfo} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestForMeeting(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	ForMeeting(l, "engine", "m-9").Info("scoped")
	if !strings.Contains(buf.String(), `"meeting_id":"m-9"`) || !strings.Contains(buf.String(), `"component":"engine"`) {
		t.Fatalf("expected meeting scope, got %s", buf.String())
	}

	buf.Reset()
	slogBased := NewSlogAdapter(l.logger)
	ForMeeting(slogBased, "loop", "m-10").Warn("plain", "k", 1)
	if !strings.Contains(buf.String(), `"meeting_id":"m-10"`) || !strings.Contains(buf.String(), `"k":1`) {
		t.Fatalf("expected prepended args, got %s", buf.String())
	}

	if _, ok := ForMeeting(nil, "x", "y").(NoOpLogger); !ok {
		t.Fatal("expected NoOpLogger for nil")
	}
}
