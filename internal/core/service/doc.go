// Package service holds the client core: the token store, the session
// coordinator and the cart and order workflow.
//
// Services depend on small backend interfaces (AuthAPI, CartAPI, OrderAPI,
// CatalogAPI) satisfied by package backend, so tests can substitute fakes.
// All methods are safe for concurrent use.
package service
