// Package connection is the outbound HTTP layer shared by every backend
// API.
//
// A Client targets one backend. The primary client attaches the bearer
// token from its TokenSource and, on the first 401 of a request, performs
// a coalesced access-token refresh and replays the request once. The
// catalog client has no token source and never refreshes.
//
// Failures are returned as *HTTPError for non-2xx replies and as a
// network DomainError for transport failures. Classify maps both onto the
// domain error taxonomy.
package connection
