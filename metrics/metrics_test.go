package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.MeetingStarted()
	c.Reply("ADVANCE")
	c.Reply("ADVANCE")
	c.Reply("AWAIT_RETRY")
	c.MessageSent("OPEN", true)
	c.MessageSent("OPEN", false)
	c.PollCycle()
	c.MeetingCompleted("FINALIZED", 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.meetingsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.meetingsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.replies.WithLabelValues("ADVANCE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replies.WithLabelValues("AWAIT_RETRY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.messagesSent.WithLabelValues("OPEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sendFailures.WithLabelValues("OPEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.meetingsCompleted.WithLabelValues("FINALIZED")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
	assert.Panics(t, func() { MustNew(reg) })
}

func TestCollector_NilIsNoOp(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.MeetingStarted()
		c.Reply("ADVANCE")
		c.MessageSent("OPEN", true)
		c.PollCycle()
		c.MeetingCompleted("FAILED", time.Second)
	})
}
