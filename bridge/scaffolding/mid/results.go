package mid

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/bridge/scaffolding/fopbridge"
	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
)

// Results is the envelope of a list request.
type Results = fopbridge.ResultEnvelope[docstore.Document]

// ResultsConfig names the collection a list route reads and the relations
// it eager-loads.
type ResultsConfig struct {
	DB         docstore.Database
	Collection string
	Relations  []fop.Relation
	CountMode  docstore.CountMode
}

type resultsSlot struct {
	once    sync.Once
	results Results
}

// AdvancedResults compiles the querystring, fetches the page it describes
// and leaves the envelope on the context for the handler. Fetch failures
// end the request.
func AdvancedResults(cfg ResultsConfig) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			d := fop.Compile(r.URL.Query()).WithRelations(cfg.Relations...)

			res, err := docstore.Fetch(ctx, cfg.DB, cfg.Collection, d, docstore.FetchOptions{CountMode: cfg.CountMode})
			if err != nil {
				return errs.FromRepository(err)
			}

			slot := &resultsSlot{results: fopbridge.NewResultEnvelope(res.Items, d, res.TotalCount)}
			return next(context.WithValue(ctx, resultsKey, slot), r)
		}
	}
}

// TakeAdvancedResults hands over the envelope AdvancedResults built. Only
// the first call gets it.
func TakeAdvancedResults(ctx context.Context) (Results, bool) {
	slot, ok := ctx.Value(resultsKey).(*resultsSlot)
	if !ok {
		return Results{}, false
	}

	var (
		out Results
		got bool
	)
	slot.once.Do(func() {
		out, got = slot.results, true
		slot.results = Results{}
	})
	return out, got
}

// ServeAdvancedResults is the handler of a plain list route: it answers with
// the envelope AdvancedResults built.
func ServeAdvancedResults(ctx context.Context, r *http.Request) web.Encoder {
	res, ok := TakeAdvancedResults(ctx)
	if !ok {
		return errs.Newf(errs.Internal, "list results missing for %s", r.URL.Path)
	}
	return res
}
