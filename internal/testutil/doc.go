// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing meeting requests, participants and
// scripted collaborators. They are not intended for production usage.
package testutil
