// Package tlsroots builds the client TLS settings used to reach the
// backends: the system roots plus an optional private CA bundle, and an
// optional client key pair for backends that require mutual TLS.
package tlsroots
