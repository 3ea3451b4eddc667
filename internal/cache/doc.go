// Package cache is the client-side query cache.
//
// Entries are addressed by a Key, an ordered list of segments such as
// ["orders", "detail", "42", <session>]. Invalidation works on key prefixes
// so one mutation can mark a whole group stale. Keys for per-user data carry
// the session segment from domain.SessionKey, so data fetched under one
// access token is never served under another.
//
// Fetch deduplicates concurrent loads of the same entry and refuses to write
// back a result that was overtaken while in flight: by an invalidation, a
// removal, a Reset, or a fetch issued later that already landed.
package cache
