// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside meetmesh.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface so the agents
// that render messages and read replies stay decoupled from vendor SDKs.
package model
