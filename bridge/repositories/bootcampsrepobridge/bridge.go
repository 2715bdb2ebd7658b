package bootcampsrepobridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/infrastructure/objectstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// bridge provides HTTP handlers for Bootcamp operations.
type bridge struct {
	log        *logger.Logger
	repository *bootcampsrepo.Repository
	photos     objectstore.Store
	maxUpload  int64
}

func newBridge(cfg Config) *bridge {
	return &bridge{
		log:        cfg.Log,
		repository: cfg.Repository,
		photos:     cfg.Photos,
		maxUpload:  cfg.MaxUpload,
	}
}

func (b *bridge) httpGetByID(ctx context.Context, r *http.Request) web.Encoder {
	bootcamp, err := b.repository.QueryByID(ctx, web.Param(r, "bid"))
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(bootcamp)
}

func (b *bridge) httpCreate(ctx context.Context, r *http.Request) web.Encoder {
	var input CreateBootcampInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	bootcamp, err := b.repository.Create(ctx, mid.GetActor(ctx), input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewCreatedResponse(bootcamp)
}

func (b *bridge) httpUpdate(ctx context.Context, r *http.Request) web.Encoder {
	var input UpdateBootcampInput
	if err := web.Decode(r, &input); err != nil {
		return errs.FromRepository(err)
	}

	bootcamp, err := b.repository.Update(ctx, mid.GetActor(ctx), web.Param(r, "bid"), input.toRepository())
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(bootcamp)
}

func (b *bridge) httpDelete(ctx context.Context, r *http.Request) web.Encoder {
	if err := b.repository.Delete(ctx, mid.GetActor(ctx), web.Param(r, "bid")); err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(struct{}{})
}

func (b *bridge) httpWithinRadius(ctx context.Context, r *http.Request) web.Encoder {
	distance, err := strconv.ParseFloat(web.Param(r, "distance"), 64)
	if err != nil {
		return errs.Newf(errs.Validation, "Please provide a valid distance")
	}

	bootcamps, err := b.repository.WithinRadius(ctx, web.Param(r, "zipcode"), distance)
	if err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewCountedResponse(bootcamps)
}

// photoTypes maps the image types accepted as photos to their extension.
var photoTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// httpPhotoUpload stores the image in the multipart field "file" as
// photo_{id}{ext} and records it on the bootcamp.
func (b *bridge) httpPhotoUpload(ctx context.Context, r *http.Request) web.Encoder {
	id := web.Param(r, "bid")
	if _, err := b.repository.Authorize(ctx, mid.GetActor(ctx), id, "update this bootcamp"); err != nil {
		return errs.FromRepository(err)
	}

	file, err := web.FormFile(r, "file", b.maxUpload)
	switch {
	case errors.Is(err, web.ErrFileTooLarge):
		return errs.Newf(errs.Validation, "Please upload an image less than %d", b.maxUpload)
	case err != nil:
		return errs.Wrap(errs.Validation, err, "Please upload a file")
	}
	// the declared type is ignored; only sniffed raster images are kept
	contentType := http.DetectContentType(file.Data)
	ext, ok := photoTypes[contentType]
	if !ok {
		return errs.Newf(errs.Validation, "Please upload an image file")
	}

	name := fmt.Sprintf("photo_%s%s", id, ext)
	if err := b.photos.Put(ctx, name, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
		b.log.ErrorContext(ctx, "photo upload", "bootcamp", id, "error", err)
		return errs.Wrap(errs.Internal, err, "Problem with file upload")
	}

	if _, err := b.repository.SetPhoto(ctx, id, name); err != nil {
		return errs.FromRepository(err)
	}
	return fopbridge.NewRecordResponse(name)
}

func (b *bridge) httpUpload(ctx context.Context, r *http.Request) web.Encoder {
	obj, err := b.photos.Get(ctx, web.Param(r, "name"))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) || errors.Is(err, objectstore.ErrInvalidKey) {
			return errs.Wrap(errs.NotFound, err, "File not found")
		}
		return errs.Wrap(errs.Internal, err, "Server Error")
	}
	defer obj.Reader.Close()

	data, err := io.ReadAll(obj.Reader)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "Server Error")
	}
	contentType := obj.ContentType
	if _, ok := photoTypes[contentType]; !ok {
		contentType = "application/octet-stream"
	}
	return web.NewRawResponse(data, contentType)
}
