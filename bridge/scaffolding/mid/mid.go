// Package mid provides app level middleware support.
package mid

import (
	"context"
	"errors"

	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/web"
)

type ctxKey int

const (
	userKey ctxKey = iota + 1
	resultsKey
)

// ErrNoUser is returned when a context has not passed Authenticate.
var ErrNoUser = errors.New("user not found in context")

func setUser(ctx context.Context, user usersrepo.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated user from the context.
func GetUser(ctx context.Context) (usersrepo.User, error) {
	v, ok := ctx.Value(userKey).(usersrepo.User)
	if !ok {
		return usersrepo.User{}, ErrNoUser
	}
	return v, nil
}

// GetActor returns the authenticated user as the actor of a write. It is the
// zero Actor when the context is anonymous.
func GetActor(ctx context.Context) repositories.Actor {
	user, err := GetUser(ctx)
	if err != nil {
		return repositories.Actor{}
	}
	return repositories.Actor{ID: user.ID, Admin: user.IsAdmin()}
}

// isError tests if the Encoder has an error inside of it.
func isError(e web.Encoder) error {
	err, isError := e.(error)
	if isError {
		return err
	}
	return nil
}
