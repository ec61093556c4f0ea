package server

import (
	"context"
	"net/http"
	"regexp"
)

// TenantHeader carries the verified tenant identity set by the upstream auth layer.
const TenantHeader = "X-Tenant-ID"

// Tenant ids name upload directories, so they are restricted to a safe alphabet.
var tenantIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

type tenantKey struct{}

// ValidTenantID reports whether id is acceptable as a tenant id.
func ValidTenantID(id string) bool {
	return tenantIDRe.MatchString(id) && id != ".." && id != "."
}

func (s *Server) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(TenantHeader)
		if id == "" {
			s.respondError(w, http.StatusUnauthorized, "missing "+TenantHeader+" header")
			return
		}
		if !ValidTenantID(id) {
			s.respondError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, id)))
	})
}

func tenantFrom(r *http.Request) string {
	id, _ := r.Context().Value(tenantKey{}).(string)
	return id
}
