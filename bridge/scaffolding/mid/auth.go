package mid

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// TokenCookie is the cookie a session token is also delivered in.
const TokenCookie = "token"

// UserFinder resolves the subject of a verified token.
type UserFinder interface {
	QueryByID(ctx context.Context, id string) (usersrepo.User, error)
}

// AuthConfig wires Authenticate.
type AuthConfig struct {
	Log    *logger.Logger
	Tokens authn.Tokens
	Users  UserFinder
}

// Authenticate requires a valid session token, from the Authorization
// bearer header or the token cookie, and puts its user on the context.
func Authenticate(cfg AuthConfig) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			token := BearerToken(r)
			if token == "" {
				return errs.Newf(errs.Unauthenticated, "Not authorized to access this route")
			}

			claims, err := cfg.Tokens.Verify(token)
			if err != nil {
				cfg.Log.DebugContext(ctx, "token rejected", "error", err)
				return errs.Newf(errs.Unauthenticated, "Not authorized to access this route")
			}

			user, err := cfg.Users.QueryByID(ctx, claims.UserID)
			if err != nil {
				cfg.Log.DebugContext(ctx, "token subject not found", "user", claims.UserID, "error", err)
				return errs.Newf(errs.Unauthenticated, "Not authorized to access this route")
			}

			return next(setUser(ctx, user), r)
		}
	}
}

// Authorize lets through only authenticated users holding one of roles.
func Authorize(roles ...string) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			user, err := GetUser(ctx)
			if err != nil {
				return errs.Newf(errs.Unauthenticated, "Not authorized to access this route")
			}
			if !slices.Contains(roles, user.Role) {
				return errs.Newf(errs.Forbidden, "User role %s is not authorized to access this route", user.Role)
			}
			return next(ctx, r)
		}
	}
}

// BearerToken returns the token of the request: the Authorization bearer
// credential when present, the token cookie otherwise.
func BearerToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "none" {
		return c.Value
	}
	return ""
}
