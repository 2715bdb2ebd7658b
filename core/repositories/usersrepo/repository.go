// Package usersrepo stores user accounts and runs the credential flows:
// login, password change and password reset.
package usersrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/sdk/cryptids"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// resetTokenBytes is the size of a reset token before hex encoding.
const resetTokenBytes = 20

// Repository provides access to user storage.
type Repository struct {
	log    *logger.Logger
	storer docstore.Collection
	events events.Publisher
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a new User repository over the users collection of db.
func NewRepository(log *logger.Logger, db docstore.Database, publisher events.Publisher, opts ...Option) (*Repository, error) {
	storer, err := db.Collection(Collection)
	if err != nil {
		return nil, fmt.Errorf("users collection: %w", err)
	}
	r := &Repository{
		log:    log,
		storer: storer,
		events: publisher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create hashes the password and stores a new account. Role defaults to user.
func (r *Repository) Create(ctx context.Context, input CreateUser) (User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Role == "" {
		input.Role = RoleUser
	}
	if err := input.Validate(); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	doc, err := r.storer.Insert(ctx, docstore.Document{
		"name":     input.Name,
		"email":    input.Email,
		"role":     input.Role,
		"password": hash,
	})
	if err != nil {
		return User{}, repositories.StoreError("create user", err)
	}

	user := fromDocument(doc)
	r.log.InfoContext(ctx, "created user", "id", user.ID, "role", user.Role)
	r.events.Publish(ctx, events.Event{Kind: events.ItemCreated, Collection: Collection, ItemID: user.ID})
	return user, nil
}

// QueryByID returns the user with id.
func (r *Repository) QueryByID(ctx context.Context, id string) (User, error) {
	doc, err := r.storer.FindByID(ctx, id)
	if err != nil {
		return User{}, repositories.StoreError("query user", err)
	}
	return fromDocument(doc), nil
}

// QueryByEmail returns the user registered under email.
func (r *Repository) QueryByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, "query user by email", docstore.Condition{
		Field: "email", Op: docstore.OpEq, Value: strings.TrimSpace(email),
	})
}

// Authenticate checks email and password. Unknown email and wrong password
// fail the same way.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := r.QueryByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return User{}, repositories.Fail(repositories.ErrUnauthenticated, "Invalid credentials")
		}
		return User{}, err
	}
	if !authn.ComparePassword(user.PasswordHash, password) {
		return User{}, repositories.Fail(repositories.ErrUnauthenticated, "Invalid credentials")
	}
	return user, nil
}

// Update applies the set fields of input.
func (r *Repository) Update(ctx context.Context, id string, input UpdateUser) (User, error) {
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		input.Email = &email
	}
	if err := input.Validate(); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}

	doc, err := r.storer.UpdateByID(ctx, id, input.patch())
	if err != nil {
		return User{}, repositories.StoreError("update user", err)
	}

	r.events.Publish(ctx, events.Event{Kind: events.ItemUpdated, Collection: Collection, ItemID: id})
	return fromDocument(doc), nil
}

// UpdatePassword replaces the password after checking the current one.
func (r *Repository) UpdatePassword(ctx context.Context, id, current, next string) (User, error) {
	user, err := r.QueryByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !authn.ComparePassword(user.PasswordHash, current) {
		return User{}, repositories.Fail(repositories.ErrUnauthenticated, "Incorrect password")
	}
	return r.setPassword(ctx, id, next)
}

// SetResetToken issues a password reset token for the user and stores its
// digest. The plain token is returned for delivery and never stored.
func (r *Repository) SetResetToken(ctx context.Context, id string) (string, error) {
	token, err := cryptids.GenerateHexToken(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}

	_, err = r.storer.UpdateByID(ctx, id, docstore.Document{
		"resetPasswordToken":  cryptids.HashToken(token),
		"resetPasswordExpire": r.now().UTC().Add(ResetTokenTTL).Truncate(time.Millisecond),
	})
	if err != nil {
		return "", repositories.StoreError("set reset token", err)
	}
	return token, nil
}

// ClearResetToken drops any pending reset token.
func (r *Repository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.storer.UpdateByID(ctx, id, docstore.Document{
		"resetPasswordToken":  nil,
		"resetPasswordExpire": nil,
	})
	return repositories.StoreError("clear reset token", err)
}

// ResetPassword sets a new password for the holder of an unexpired token
// and consumes the token.
func (r *Repository) ResetPassword(ctx context.Context, token, password string) (User, error) {
	user, err := r.findOne(ctx, "reset password",
		docstore.Condition{Field: "resetPasswordToken", Op: docstore.OpEq, Value: cryptids.HashToken(token)},
		docstore.Condition{Field: "resetPasswordExpire", Op: docstore.OpGt, Value: r.now().UTC()},
	)
	if err != nil {
		if repositories.IsNotFound(err) {
			return User{}, repositories.Fail(repositories.ErrValidation, "Invalid token")
		}
		return User{}, err
	}

	if _, err := r.setPassword(ctx, user.ID, password); err != nil {
		return User{}, err
	}
	if err := r.ClearResetToken(ctx, user.ID); err != nil {
		return User{}, err
	}
	return r.QueryByID(ctx, user.ID)
}

// Delete removes the user.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.storer.DeleteByID(ctx, id); err != nil {
		return repositories.StoreError("delete user", err)
	}
	r.log.InfoContext(ctx, "deleted user", "id", id)
	r.events.Publish(ctx, events.Event{Kind: events.ItemDeleted, Collection: Collection, ItemID: id})
	return nil
}

func (r *Repository) setPassword(ctx context.Context, id, password string) (User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("set password: %w", err)
	}
	doc, err := r.storer.UpdateByID(ctx, id, docstore.Document{"password": hash})
	if err != nil {
		return User{}, repositories.StoreError("set password", err)
	}
	return fromDocument(doc), nil
}

func (r *Repository) findOne(ctx context.Context, op string, filter ...docstore.Condition) (User, error) {
	docs, err := r.storer.Find(ctx, docstore.Query{Filter: filter, Limit: 1})
	if err != nil {
		return User{}, repositories.StoreError(op, err)
	}
	if len(docs) == 0 {
		return User{}, fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	return fromDocument(docs[0]), nil
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", repositories.Fail(repositories.ErrValidation, "Password must be at least 6 characters")
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		if authn.IsPasswordTooLong(err) {
			return "", repositories.Fail(repositories.ErrValidation, "Password is too long")
		}
		return "", err
	}
	return hash, nil
}
