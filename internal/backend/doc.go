// Package backend binds the storefront REST endpoints to typed calls.
//
// Auth, Cart and Orders go through the authenticated core client; Catalog
// goes through the public catalog client. Calls return the connection
// package's errors unchanged so callers can classify them.
package backend
