// Package session holds the storage and notification primitives that carry
// an issued session between the identity provider and its callers.
//
// Storage is the key/value surface a provider client writes its session to:
// a cookie jar on the server, browser-local storage on the client. Writing to
// browser storage alone does not tell other tabs anything, so browser clients
// pair their Storage with a Broadcaster and publish an Event for every
// sign-in, sign-out and user update. Tabs subscribe to the same Broadcaster to
// stay in sync.
package session
