// Package directory contains concrete core.Directory implementations. The
// interface and Participant type reside in the core package; select an
// implementation (like the in‑memory directory below) at wiring time.
package directory
