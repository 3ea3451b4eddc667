// Package token provides random identifiers and credential fingerprints.
//
// Generate and Suffix produce random strings from crypto/rand, used for
// payment reference ids and other per-attempt identifiers. Fingerprint maps a
// credential (an access token) to a short stable digest so it can be used as
// a cache-key segment or log field without exposing the credential itself.
package token
