// Package context holds the request context keys shared by middleware and
// handlers.
package context

type Key string

const (
	// Claims holds *auth.Claims from a verified bearer token.
	Claims Key = "claims"
	// Tenant holds the *middleware.TenantContext for the calling org.
	Tenant Key = "tenant"
	Params Key = "params"
	// APIKey holds the *keys.Identity of a validated x-api-key.
	APIKey Key = "api_key"
)
