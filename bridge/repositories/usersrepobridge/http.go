// Package usersrepobridge contains HTTP route registration for User: the
// /auth session routes and the admin /users routes.
package usersrepobridge

import (
	"time"

	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/mailer"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Config holds configuration for the User bridge
type Config struct {
	Log        *logger.Logger
	Repository *usersrepo.Repository
	DB         docstore.Database
	CountMode  docstore.CountMode
	Tokens     authn.Tokens
	Mailer     mailer.Sender
	// Protect authenticates the caller of private routes.
	Protect web.Middleware
	// CookieExpire is how long the token cookie lives.
	CookieExpire time.Duration
	// SecureCookie marks the token cookie Secure.
	SecureCookie bool
}

// AddHttpRoutes registers all HTTP routes for User
func AddHttpRoutes(group *web.RouteGroup, cfg Config) {
	b := newBridge(cfg, group.Prefix()+"/auth/resetpassword/")

	group.POST("/auth/register", b.httpRegister)
	group.POST("/auth/login", b.httpLogin)
	group.GET("/auth/logout", b.httpLogout)
	group.POST("/auth/logout", b.httpLogout)
	group.GET("/auth/me", b.httpMe, cfg.Protect)
	group.PUT("/auth/updatedetails", b.httpUpdateDetails, cfg.Protect)
	group.PUT("/auth/updatepassword", b.httpUpdatePassword, cfg.Protect)
	group.POST("/auth/forgotpassword", b.httpForgotPassword)
	group.PUT("/auth/resetpassword/{resettoken}", b.httpResetPassword)

	admin := group.Group("/users", cfg.Protect, mid.Authorize(usersrepo.RoleAdmin))
	list := mid.AdvancedResults(mid.ResultsConfig{
		DB:         cfg.DB,
		Collection: usersrepo.Collection,
		CountMode:  cfg.CountMode,
	})

	admin.GET("", mid.ServeAdvancedResults, list)
	admin.GET("/{id}", b.httpGetByID)
	admin.POST("", b.httpCreate)
	admin.PUT("/{id}", b.httpUpdate)
	admin.DELETE("/{id}", b.httpDelete)
}
