// Package bootcampsrepobridge contains HTTP route registration for Bootcamp.
package bootcampsrepobridge

import (
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/objectstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Config holds configuration for the Bootcamp bridge
type Config struct {
	Log        *logger.Logger
	Repository *bootcampsrepo.Repository
	DB         docstore.Database
	CountMode  docstore.CountMode
	Photos     objectstore.Store
	// MaxUpload is the largest accepted photo in bytes.
	MaxUpload int64
	// Protect authenticates the caller of write routes.
	Protect web.Middleware
}

// AddHttpRoutes registers all HTTP routes for Bootcamp
func AddHttpRoutes(group *web.RouteGroup, cfg Config) {
	b := newBridge(cfg)

	list := mid.AdvancedResults(mid.ResultsConfig{
		DB:         cfg.DB,
		Collection: bootcampsrepo.Collection,
		Relations:  []fop.Relation{{Name: "courses"}},
		CountMode:  cfg.CountMode,
	})
	publishers := mid.Authorize(usersrepo.RolePublisher, usersrepo.RoleAdmin)

	group.GET("/bootcamps", mid.ServeAdvancedResults, list)
	group.GET("/bootcamps/{bid}", b.httpGetByID)
	group.POST("/bootcamps", b.httpCreate, cfg.Protect, publishers)
	group.PUT("/bootcamps/{bid}", b.httpUpdate, cfg.Protect, publishers)
	group.DELETE("/bootcamps/{bid}", b.httpDelete, cfg.Protect, publishers)

	group.GET("/bootcamps/radius/{zipcode}/{distance}", b.httpWithinRadius)
	group.PUT("/bootcamps/{bid}/photo", b.httpPhotoUpload, cfg.Protect, publishers)
}

// AddUploadRoutes serves stored photos under /uploads.
func AddUploadRoutes(group *web.RouteGroup, cfg Config) {
	b := newBridge(cfg)

	group.GET("/uploads/{name}", b.httpUpload)
}
