// Package local is a self-hosted identity provider backed by bun.
//
// A Provider is created once per process and owns persistence, token
// signing and outgoing mail. Every request, or every browser profile, gets
// its own Client through Provider.Client. The Client keeps the issued
// session token in the session.Storage it was given and, when a
// Broadcaster is attached, announces every auth-state change so other tabs
// can follow.
//
// Sessions carry an Authentication Method Reference list. Password and
// OAuth sign-ins record "password" and "oauth". Only consuming a recovery
// link records "recovery", which is what the password reset surface checks
// before it lets anyone choose a new password.
//
// Failures are go-errors values whose TextCode is one of the translate
// codes and whose Message is the raw provider message, so callers can
// translate them without knowing about this package.
package local
