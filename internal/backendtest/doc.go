// Package backendtest runs an in-process storefront backend for tests.
//
// The server implements the auth, catalog, cart and order endpoints with
// the same paths, bodies and error shapes as the real services, issues
// signed JWT access tokens with an exp claim, and records every request so
// tests can assert on call counts and on the bearer token each request
// carried.
package backendtest
