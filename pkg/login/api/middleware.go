package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/jwtauth/v5"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/authz"
)

type contextKey string

const principalKey contextKey = "principal"

// Authenticator turns a verified JWT into an authz.Principal on the request
// context. It runs after jwtauth.Verifier, which handles signature and
// expiry checks.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		sub, _ := claims["sub"].(string)
		accountID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		role, _ := claims["role"].(string)
		principal := authz.Principal{
			AccountID: accountID,
			Role:      account.Role(role),
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the authenticated caller
func PrincipalFromContext(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(principalKey).(authz.Principal)
	return p, ok
}

// clientIP returns the originating address, preferring X-Forwarded-For when
// the request came through a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
