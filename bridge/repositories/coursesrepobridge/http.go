// Package coursesrepobridge contains HTTP route registration for Course.
package coursesrepobridge

import (
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Config holds configuration for the Course bridge
type Config struct {
	Log        *logger.Logger
	Repository *coursesrepo.Repository
	DB         docstore.Database
	CountMode  docstore.CountMode
	// Protect authenticates the caller of write routes.
	Protect web.Middleware
}

// AddHttpRoutes registers all HTTP routes for Course
func AddHttpRoutes(group *web.RouteGroup, cfg Config) {
	b := newBridge(cfg)

	list := mid.AdvancedResults(mid.ResultsConfig{
		DB:         cfg.DB,
		Collection: coursesrepo.Collection,
		Relations:  []fop.Relation{{Name: "bootcamp", Fields: []string{"name", "description"}}},
		CountMode:  cfg.CountMode,
	})
	publishers := mid.Authorize(usersrepo.RolePublisher, usersrepo.RoleAdmin)

	group.GET("/courses", mid.ServeAdvancedResults, list)
	group.GET("/courses/{id}", b.httpGetByID)
	group.PUT("/courses/{id}", b.httpUpdate, cfg.Protect, publishers)
	group.DELETE("/courses/{id}", b.httpDelete, cfg.Protect, publishers)

	// Bootcamp scoped routes
	group.GET("/bootcamps/{bootcampId}/courses", b.httpListByBootcamp)
	group.POST("/bootcamps/{bootcampId}/courses", b.httpCreate, cfg.Protect, publishers)
}
