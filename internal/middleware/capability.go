package middleware

import (
	"net/http"

	"github.com/api-marketplace-gateway/internal/model"
)

// Capability names an action a route requires.
type Capability string

const (
	CapPublishAPI    Capability = "publish_api"
	CapManageCatalog Capability = "manage_catalog"
	CapSubscribe     Capability = "subscribe"
	CapViewUsage     Capability = "view_usage"
	CapAdmin         Capability = "admin"
)

var capabilityRoles = map[Capability][]model.Role{
	CapPublishAPI:    {model.RoleSupplier},
	CapManageCatalog: {model.RoleSupplier, model.RoleAdmin},
	CapSubscribe:     {model.RoleUser},
	CapViewUsage:     {model.RoleSupplier, model.RoleAdmin},
	CapAdmin:         {model.RoleAdmin},
}

// Decision is the outcome of a capability check. Reason is set when the
// check failed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Authorize decides whether caller holds capability.
func Authorize(caller model.Caller, capability Capability) Decision {
	roles, ok := capabilityRoles[capability]
	if !ok {
		return Decision{Reason: "unknown capability " + string(capability)}
	}
	for _, role := range roles {
		if caller.Role == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: "role " + string(caller.Role) + " lacks " + string(capability)}
}

// RequireCapability rejects requests whose caller lacks capability. It must
// run after UserAuth.
func RequireCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized", "Token is missing.")
				return
			}
			if d := Authorize(caller, capability); !d.Allowed {
				respondError(w, http.StatusForbidden, "forbidden", "Unauthorized access.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
