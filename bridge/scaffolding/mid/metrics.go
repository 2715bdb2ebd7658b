package mid

import (
	"context"
	"net/http"

	"github.com/jrazmi/devcamper/bridge/scaffolding/metrics"
	"github.com/jrazmi/devcamper/infrastructure/web"
)

// Metrics updates program counters.
func Metrics() web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			ctx = metrics.Set(ctx)

			resp := next(ctx, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			n := metrics.AddRequests(ctx, r.Method, route, web.StatusOf(resp))

			if n%1000 == 0 {
				metrics.AddGoroutines(ctx)
			}

			if isError(resp) != nil {
				metrics.AddErrors(ctx)
			}

			return resp
		}
	}
}
