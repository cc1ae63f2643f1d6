package chi

import (
	"net/http"
	"strings"
)

// Auth configures API key checks. With PublicReads, GET and HEAD requests
// (search, explain, item and namespace reads) are served without a key and
// only catalog writes and cache invalidation need one.
type Auth struct {
	APIKeys     []string
	PublicReads bool
}

// openPaths are served to anyone: load balancers and Prometheus poll them.
var openPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If no key is configured, authentication is disabled (pass-through).
func BearerAuthMiddleware(cfg Auth) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := openPaths[r.URL.Path]; ok || (cfg.PublicReads && isRead(r)) {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			switch {
			case auth == "":
				deny(w, "api key required for "+r.Method+" "+r.URL.Path)
			case !strings.HasPrefix(auth, bearerPrefix):
				deny(w, "authorization header must use Bearer scheme")
			default:
				if _, ok := validKeys[auth[len(bearerPrefix):]]; !ok {
					deny(w, "invalid api key")
					return
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func deny(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="catalogq"`)
	writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
}
