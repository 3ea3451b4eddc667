package backend

import "net/url"

// Endpoint paths, relative to the client's base URL.
const (
	PathLogin        = "/auth/login"
	PathRegistration = "/auth/registration"
	PathLogout       = "/auth/logout"
	PathRefresh      = "/auth/jwt/refresh"
	PathGoogleLogin  = "/auth/social/google"
	PathUser         = "/auth/user"
	PathDeactivate   = "/users/deactivate/"
	PathResendEmail  = "/registration/resend-email"

	PathServices = "/services"

	PathCart     = "/cart"
	PathCheckout = "/orders/checkout"
	PathOrders   = "/orders"
)

func itemPath(base, id string) string {
	return base + "/" + url.PathEscape(id)
}
