package mid

import (
	"context"
	"net/http"
	"path"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Errors handles errors coming out of the call chain. Every error leaves as
// an *errs.Error so the client always sees {success:false, error}.
func Errors(log *logger.Logger) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			resp := next(ctx, r)
			err := isError(resp)
			if err == nil {
				return resp
			}

			appErr := errs.FromRepository(err)
			status := appErr.HTTPStatus()

			attrs := []any{
				"err", err,
				"status", status,
				"source_err_file", path.Base(appErr.FileName),
				"source_err_func", path.Base(appErr.FuncName),
			}
			if status >= http.StatusInternalServerError {
				log.ErrorContext(ctx, "handled error during request", attrs...)
			} else {
				log.InfoContext(ctx, "request rejected", attrs...)
			}

			if appErr.Code == errs.InternalOnlyLog {
				appErr = errs.Newf(errs.Internal, "Server Error")
			}

			return appErr
		}
	}
}
