package coursesrepobridge

import (
	"context"
	"net/http"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// bridge provides HTTP handlers for Course operations.
type bridge struct {
	log        *logger.Logger
	repository *coursesrepo.Repository
}

func newBridge(cfg Config) *bridge {
	return &bridge{
		log:        cfg.Log,
		repository: cfg.Repository,
	}
}

func (b *bridge) httpGetByID(ctx context.Context, r *http.Request) web.Encoder {
	course, err := b.repository.QueryDetail(ctx, web.Param(r, "id"))
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(course)
}

func (b *bridge) httpListByBootcamp(ctx context.Context, r *http.Request) web.Encoder {
	courses, err := b.repository.ListByBootcamp(ctx, web.Param(r, "bootcampId"))
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewCountedResponse(courses)
}

func (b *bridge) httpCreate(ctx context.Context, r *http.Request) web.Encoder {
	var input CreateCourseInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	course, err := b.repository.Create(ctx, mid.GetActor(ctx), web.Param(r, "bootcampId"), input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewCreatedResponse(course)
}

func (b *bridge) httpUpdate(ctx context.Context, r *http.Request) web.Encoder {
	var input UpdateCourseInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	course, err := b.repository.Update(ctx, mid.GetActor(ctx), web.Param(r, "id"), input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(course)
}

func (b *bridge) httpDelete(ctx context.Context, r *http.Request) web.Encoder {
	if err := b.repository.Delete(ctx, mid.GetActor(ctx), web.Param(r, "id")); err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(struct{}{})
}
