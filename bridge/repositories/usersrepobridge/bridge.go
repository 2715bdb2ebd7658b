package usersrepobridge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/mailer"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// logoutCookieTTL is how long the cleared token cookie lingers.
const logoutCookieTTL = 10 * time.Second

// bridge provides HTTP handlers for User operations.
type bridge struct {
	log          *logger.Logger
	repository   *usersrepo.Repository
	tokens       authn.Tokens
	mailer       mailer.Sender
	cookieExpire time.Duration
	secureCookie bool
	resetPath    string
}

func newBridge(cfg Config, resetPath string) *bridge {
	return &bridge{
		log:          cfg.Log,
		repository:   cfg.Repository,
		tokens:       cfg.Tokens,
		mailer:       cfg.Mailer,
		cookieExpire: cfg.CookieExpire,
		secureCookie: cfg.SecureCookie,
		resetPath:    resetPath,
	}
}

// sendToken signs a token for user and delivers it in the body and the
// token cookie.
func (b *bridge) sendToken(ctx context.Context, user usersrepo.User) web.Encoder {
	token, err := b.tokens.NewToken(user.ID)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "Server Error")
	}

	web.SetCookie(ctx, &http.Cookie{
		Name:     mid.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(b.cookieExpire),
		HttpOnly: true,
		Secure:   b.secureCookie,
	})
	return fopbridge.NewTokenResponse(token)
}

// =============================================================================
// Auth

func (b *bridge) httpRegister(ctx context.Context, r *http.Request) web.Encoder {
	var input RegisterInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.Create(ctx, input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return b.sendToken(ctx, user)
}

func (b *bridge) httpLogin(ctx context.Context, r *http.Request) web.Encoder {
	var input LoginInput
	if err := web.Decode(r, &input); err != nil {
		if errors.Is(err, web.ErrEmptyBody) {
			return errs.Newf(errs.Validation, "Please provide an email and password")
		}
		return errs.FromRepository(err)
	}

	user, err := b.repository.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return errs.FromRepository(err)
	}
	return b.sendToken(ctx, user)
}

func (b *bridge) httpLogout(ctx context.Context, r *http.Request) web.Encoder {
	web.SetCookie(ctx, &http.Cookie{
		Name:     mid.TokenCookie,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(logoutCookieTTL),
		HttpOnly: true,
	})
	return fopbridge.NewRecordResponse(struct{}{})
}

func (b *bridge) httpMe(ctx context.Context, r *http.Request) web.Encoder {
	user, err := mid.GetUser(ctx)
	if err != nil {
		return errs.Newf(errs.Unauthenticated, "Not authorized to access this route")
	}
	return fopbridge.NewRecordResponse(user)
}

func (b *bridge) httpUpdateDetails(ctx context.Context, r *http.Request) web.Encoder {
	var input UpdateDetailsInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.Update(ctx, mid.GetActor(ctx).ID, input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(user)
}

func (b *bridge) httpUpdatePassword(ctx context.Context, r *http.Request) web.Encoder {
	var input UpdatePasswordInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.UpdatePassword(ctx, mid.GetActor(ctx).ID, input.CurrentPassword, input.NewPassword)
	if err != nil {
		return errs.FromRepository(err)
	}
	return b.sendToken(ctx, user)
}

// httpForgotPassword mails a reset link. A failed delivery withdraws the
// token again.
func (b *bridge) httpForgotPassword(ctx context.Context, r *http.Request) web.Encoder {
	var input ForgotPasswordInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.QueryByEmail(ctx, input.Email)
	if err != nil {
		if repositories.IsNotFound(err) {
			return errs.Newf(errs.NotFound, "There is no user with that email")
		}
		return errs.FromRepository(err)
	}

	token, err := b.repository.SetResetToken(ctx, user.ID)
	if err != nil {
		return errs.FromRepository(err)
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Password reset token",
		Body: "You are receiving this email because you (or someone else) has requested the reset of a password. " +
			"Please make a PUT request to: \n\n" + b.resetURL(r, token),
	}
	if err := b.mailer.Send(ctx, msg); err != nil {
		b.log.ErrorContext(ctx, "reset mail", "user", user.ID, "error", err)
		if err := b.repository.ClearResetToken(ctx, user.ID); err != nil {
			b.log.ErrorContext(ctx, "clear reset token", "user", user.ID, "error", err)
		}
		return errs.Wrap(errs.Internal, err, "Email could not be sent")
	}

	return fopbridge.NewRecordResponse("Email sent")
}

func (b *bridge) resetURL(r *http.Request, token string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + b.resetPath + token
}

func (b *bridge) httpResetPassword(ctx context.Context, r *http.Request) web.Encoder {
	var input ResetPasswordInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.ResetPassword(ctx, web.Param(r, "resettoken"), input.Password)
	if err != nil {
		return errs.FromRepository(err)
	}
	return b.sendToken(ctx, user)
}

// =============================================================================
// Admin

func (b *bridge) httpGetByID(ctx context.Context, r *http.Request) web.Encoder {
	id := web.Param(r, "id")
	user, err := b.repository.QueryByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return errs.Newf(errs.NotFound, "No user with the id of %s", id)
		}
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(user)
}

func (b *bridge) httpCreate(ctx context.Context, r *http.Request) web.Encoder {
	var input CreateUserInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	user, err := b.repository.Create(ctx, input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewCreatedResponse(user)
}

func (b *bridge) httpUpdate(ctx context.Context, r *http.Request) web.Encoder {
	var input UpdateUserInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	id := web.Param(r, "id")
	user, err := b.repository.Update(ctx, id, input.toRepository())
	if err != nil {
		if repositories.IsNotFound(err) {
			return errs.Newf(errs.NotFound, "No user with the id of %s", id)
		}
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(user)
}

func (b *bridge) httpDelete(ctx context.Context, r *http.Request) web.Encoder {
	id := web.Param(r, "id")
	if err := b.repository.Delete(ctx, id); err != nil {
		if repositories.IsNotFound(err) {
			return errs.Newf(errs.NotFound, "No user with the id of %s", id)
		}
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(struct{}{})
}
