// Package ratelimit implements the per-client admission check that guards
// quota-consuming endpoints.
//
// Each client gets a fixed window that opens on its first request. Up to
// five requests are admitted per window; further requests are rejected
// without touching the stored entry. Once the window is older than 24 hours
// the next request starts a fresh one. Windows do not slide, so a client can
// spend a full quota at the end of one window and another right after it
// resets.
//
// Every admitted request is persisted before Admit returns. State lives in a
// Store:
//
//   - FileStore: the whole map as one JSON object, rewritten on every flush
//   - MemoryStore: process lifetime only
//   - RedisStore: one redis hash, one field per client
//
// Usage:
//
//	store, err := ratelimit.OpenFileStore("rate_limit.json")
//	if err != nil {
//	    // malformed state is fatal at startup
//	}
//	limiter := ratelimit.New(store)
//
//	ok, err := limiter.Admit(ctx, clientIP)
package ratelimit
