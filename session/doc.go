// Package session houses concrete implementations of core.SnapshotStore.
// The interface itself (and the CoordinationState struct) live in the core
// package to centralize domain contracts. Keeping only implementations here
// prevents higher level packages (engine) from depending on concrete storage.
package session
