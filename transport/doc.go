// Package transport contains core.Transport implementations.
//
// InMemoryTransport records every outbound message in a per-meeting,
// per-participant outbox and can play scripted replies back into the engine,
// which makes it suitable for tests, examples and the CLI. The nats
// sub-package delivers messages over NATS subjects.
package transport
