// Package domain defines the core domain models for the storefront client.
//
// Domain models are plain values without IO dependencies. This package
// contains:
//
//   - Token: the access/refresh credential pair and its expiry
//   - UserProfile, Cart, Order, Service: server-owned snapshots
//   - SessionState and SessionKey: session lifecycle and cache scoping
//   - Errors: the client error taxonomy
//
// Snapshots are owned by the server; the client never computes prices,
// totals or order transitions, it only reflects what the backend returned.
package domain
