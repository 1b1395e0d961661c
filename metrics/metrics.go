// Package metrics exposes Prometheus instrumentation for meeting negotiations.
//
// A nil *Collector is valid and records nothing, so components can call it
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meetmesh"

// Collector groups the negotiation metrics.
type Collector struct {
	meetingsStarted   prometheus.Counter
	meetingsActive    prometheus.Gauge
	meetingsCompleted *prometheus.CounterVec
	replies           *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	sendFailures      *prometheus.CounterVec
	pollCycles        prometheus.Counter
	duration          *prometheus.HistogramVec
}

// New creates a Collector and registers it with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		meetingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_started_total",
			Help:      "Total number of meeting negotiations started.",
		}),
		meetingsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meetings_active",
			Help:      "Number of meeting negotiations currently running.",
		}),
		meetingsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_completed_total",
			Help:      "Total number of meeting negotiations completed, by outcome.",
		}, []string{"outcome"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Total number of participant replies applied, by resulting action.",
		}, []string{"action"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of outbound messages sent, by intent.",
		}, []string{"intent"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Total number of outbound messages the transport failed to deliver, by intent.",
		}, []string{"intent"}),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of elapsed wait cycles across all meetings.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "negotiation_duration_seconds",
			Help:      "Wall clock duration of meeting negotiations, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"outcome"}),
	}

	if reg != nil {
		for _, col := range c.collectors() {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.meetingsStarted, c.meetingsActive, c.meetingsCompleted, c.replies,
		c.messagesSent, c.sendFailures, c.pollCycles, c.duration,
	}
}

// MeetingStarted records a new negotiation.
func (c *Collector) MeetingStarted() {
	if c == nil {
		return
	}
	c.meetingsStarted.Inc()
	c.meetingsActive.Inc()
}

// MeetingCompleted records a terminal outcome and the negotiation's duration.
func (c *Collector) MeetingCompleted(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.meetingsActive.Dec()
	c.meetingsCompleted.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Reply records an applied reply.
func (c *Collector) Reply(action string) {
	if c == nil {
		return
	}
	c.replies.WithLabelValues(action).Inc()
}

// MessageSent records an outbound message; ok=false counts a failure.
func (c *Collector) MessageSent(intent string, ok bool) {
	if c == nil {
		return
	}
	if !ok {
		c.sendFailures.WithLabelValues(intent).Inc()
		return
	}
	c.messagesSent.WithLabelValues(intent).Inc()
}

// PollCycle records one elapsed wait cycle.
func (c *Collector) PollCycle() {
	if c == nil {
		return
	}
	c.pollCycles.Inc()
}
