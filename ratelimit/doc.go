// Package ratelimit provides redis-backed fixed-window counters used to
// throttle sign-in attempts and outgoing auth emails.
//
// A window starts with the first hit: INCR, then EXPIRE when the counter
// is 1. Keys are <prefix>:<policy>:<identifier>.
package ratelimit
