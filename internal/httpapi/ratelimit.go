package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

const httprateWindow = 1 * time.Second

// rateLimitJSONRPC guards /jsonrpc against a misbehaving client hammering
// the control plane with status polls; LMS clients normally poll at
// most a few times a second per player.
func rateLimitJSONRPC() func(http.Handler) http.Handler {
	return httprate.Limit(
		30, httprateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(httprateWindow.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}
