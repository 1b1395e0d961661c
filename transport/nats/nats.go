// Package nats delivers meeting messages over NATS core subjects.
//
// Outbound messages are published as JSON on
//
//	<prefix>.outbound.<meetingID>.<participant>
//
// and participant replies are read from
//
//	<prefix>.inbound.<meetingID>.<participant>
//
// The subject tokens are authoritative: a reply's MeetingID and Participant
// are overwritten from the subject it arrived on.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/hupe1980/meetmesh/core"
	"github.com/hupe1980/meetmesh/logging"
	"github.com/hupe1980/meetmesh/transport"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "meetmesh"

// ErrInvalidToken is returned for identifiers that cannot be used as a
// subject token.
var ErrInvalidToken = errors.New("invalid subject token")

// Options configures a Transport.
type Options struct {
	Prefix string
	Logger logging.Logger
}

// Transport is a core.Transport over a NATS connection.
type Transport struct {
	conn   *nats.Conn
	prefix string
	logger logging.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// New wraps an established connection.
func New(conn *nats.Conn, optFns ...func(o *Options)) *Transport {
	opts := Options{Prefix: DefaultPrefix, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Transport{conn: conn, prefix: opts.Prefix, logger: opts.Logger}
}

// Connect dials url and wraps the resulting connection.
func Connect(url string, optFns ...func(o *Options)) (*Transport, error) {
	conn, err := nats.Connect(url, nats.Name("meetmesh"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(conn, optFns...), nil
}

// Send publishes msg on its outbound subject.
func (t *Transport) Send(ctx context.Context, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	subject, err := OutboundSubject(t.prefix, msg.MeetingID, msg.Participant)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return t.conn.Publish(subject, data)
}

// Listen subscribes to all inbound reply subjects and hands each decoded
// reply to sink. Undecodable messages and sink errors are logged and dropped.
func (t *Transport) Listen(sink transport.ReplySink) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		return errors.New("already listening")
	}

	subject := t.prefix + ".inbound.*.*"

	sub, err := t.conn.Subscribe(subject, func(m *nats.Msg) {
		reply, err := DecodeReply(t.prefix, m.Subject, m.Data)
		if err != nil {
			t.logger.Warn("Dropping inbound message", "subject", m.Subject, "error", err.Error())
			return
		}
		if err := sink(reply.MeetingID, reply); err != nil {
			t.logger.Warn("Reply not delivered", "meeting_id", reply.MeetingID, "participant", string(reply.Participant), "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	t.sub = sub
	return nil
}

// Close stops listening and drains the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			return err
		}
	}
	return t.conn.Drain()
}

// OutboundSubject builds the subject a message to p is published on.
func OutboundSubject(prefix, meetingID string, p core.ParticipantRef) (string, error) {
	return subject(prefix, "outbound", meetingID, string(p))
}

// InboundSubject builds the subject a reply from p is expected on.
func InboundSubject(prefix, meetingID string, p core.ParticipantRef) (string, error) {
	return subject(prefix, "inbound", meetingID, string(p))
}

func subject(prefix, direction, meetingID, participant string) (string, error) {
	for _, tok := range []string{meetingID, participant} {
		if err := validToken(tok); err != nil {
			return "", err
		}
	}
	return strings.Join([]string{prefix, direction, meetingID, participant}, "."), nil
}

func validToken(tok string) error {
	if tok == "" || strings.ContainsAny(tok, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidToken, tok)
	}
	return nil
}

// DecodeReply parses an inbound payload. The payload is either a JSON
// core.Reply or plain text.
func DecodeReply(prefix, subj string, data []byte) (core.Reply, error) {
	rest, ok := strings.CutPrefix(subj, prefix+".inbound.")
	if !ok {
		return core.Reply{}, fmt.Errorf("unexpected subject %q", subj)
	}

	meetingID, participant, ok := strings.Cut(rest, ".")
	if !ok || validToken(meetingID) != nil || validToken(participant) != nil {
		return core.Reply{}, fmt.Errorf("unexpected subject %q", subj)
	}

	var reply core.Reply
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &reply); err != nil {
			return core.Reply{}, fmt.Errorf("decode reply: %w", err)
		}
	} else {
		reply.Text = trimmed
	}

	reply.MeetingID = meetingID
	reply.Participant = core.ParticipantRef(participant)

	return reply, nil
}

var _ core.Transport = (*Transport)(nil)
