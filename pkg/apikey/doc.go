// Package apikey issues API keys for callers of the HTTP service.
//
// Keys look like mg_<prefix>.<secret>. Only the prefix and a SHA-256 hash
// of the key are kept, so a leaked record cannot be replayed. MemoryIssuer
// holds records for the life of the process.
package apikey
