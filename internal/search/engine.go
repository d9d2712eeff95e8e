// Package search implements the retrieval engine: similarity query plus
// structured filters, reconciled with the visibility policy through a
// coarse backend predicate and a precise post-filter.
package search

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/store"
	"github.com/geoffjay/berry/internal/vectorstore"
	"github.com/geoffjay/berry/internal/visibility"
)

// DefaultLimit caps a search when the caller does not supply one.
const DefaultLimit = 10

// DefaultOverfetchFactor inflates the backend cap when a visibility context
// is present. The backend predicate passes every shared record regardless of
// membership, so the post-filter can drop candidates; fetching extra keeps
// the caller's limit reachable.
const DefaultOverfetchFactor = 3

// scoreDecrement is the per-rank score drop for similarity results. Scores
// are a rank proxy, not similarity distances.
const scoreDecrement = 0.1

// Embedder produces a vector for the similarity query; optional.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine runs access-controlled searches over the storage adapter.
type Engine struct {
	adapter   *store.Adapter
	embed     Embedder
	admin     string
	overfetch int
	log       zerolog.Logger
}

// NewEngine builds an Engine. embed may be nil for backends that rank by
// text alone. overfetch <= 0 selects the default factor.
func NewEngine(adapter *store.Adapter, embed Embedder, admin string, overfetch int, log zerolog.Logger) *Engine {
	if admin == "" {
		admin = visibility.DefaultAdminActor
	}
	if overfetch <= 0 {
		overfetch = DefaultOverfetchFactor
	}
	return &Engine{adapter: adapter, embed: embed, admin: admin, overfetch: overfetch, log: log}
}

// Search returns up to req.Limit memories ranked best-first. A backend
// failure fails the whole search; no partial results, no retries.
func (e *Engine) Search(ctx context.Context, req model.SearchRequest) ([]model.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	actor, adminOverride := "", false
	if req.Context != nil {
		actor, adminOverride = req.Context.Actor, req.Context.AdminOverride
	}
	hasActor := actor != ""
	isAdmin := adminOverride && actor == e.admin

	where := e.buildWhere(req, actor, hasActor && !isAdmin)

	// Over-fetch compensation: the backend predicate over-approximates for
	// shared records, so the post-filter below can shrink the result set.
	fetchLimit := limit
	if hasActor && !isAdmin {
		fetchLimit = limit * e.overfetch
	}

	var (
		memories []model.Memory
		err      error
	)
	if req.Query != "" {
		var vec []float32
		if e.embed != nil {
			vec, err = e.embed.Embed(ctx, req.Query)
			if err != nil {
				e.log.Warn().Err(err).Msg("query embedding failed")
				return nil, err
			}
		}
		memories, err = e.adapter.Query(ctx, req.Query, vec, where, fetchLimit)
	} else {
		memories, err = e.adapter.List(ctx, where, fetchLimit)
	}
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, limit)
	for _, m := range memories {
		if !containsAny(m.Tags, req.Tags) {
			continue
		}
		if !containsAny(m.References, req.References) {
			continue
		}
		// Precise post-filter: enforces sharedWith membership and legacy
		// records, which the backend predicate cannot.
		if hasActor && !visibility.CanAccess(&m, actor, adminOverride, e.admin) {
			continue
		}
		results = append(results, model.SearchResult{Memory: m})
		if len(results) >= limit {
			break
		}
	}

	if req.Query != "" {
		for i := range results {
			results[i].Score = 1.0 - scoreDecrement*float64(i)
		}
	}

	e.log.Debug().
		Int("candidates", len(memories)).
		Int("results", len(results)).
		Int("fetchLimit", fetchLimit).
		Bool("visibilityFiltered", hasActor).
		Msg("search completed")
	return results, nil
}

// buildWhere translates the structured filters, and when requested ANDs in
// the cheaply expressible visibility cases: public, private-and-own, and all
// shared records (membership is tested post-hoc). Tag and reference filters
// never reach the backend; they live in JSON-encoded strings it cannot
// inspect.
func (e *Engine) buildWhere(req model.SearchRequest, actor string, withVisibility bool) *vectorstore.Where {
	var parts []*vectorstore.Where
	if req.Type != "" {
		parts = append(parts, vectorstore.Eq(store.FieldType, string(req.Type)))
	}
	if req.CreatedBy != "" {
		parts = append(parts, vectorstore.Eq(store.FieldCreatedBy, req.CreatedBy))
	}
	if req.Since != nil {
		parts = append(parts, vectorstore.Gte(store.FieldCreatedAt, req.Since.UTC()))
	}
	if req.Until != nil {
		parts = append(parts, vectorstore.Lte(store.FieldCreatedAt, req.Until.UTC()))
	}
	if withVisibility {
		parts = append(parts, vectorstore.Or(
			vectorstore.Eq(store.FieldVisibility, string(model.VisibilityPublic)),
			vectorstore.And(
				vectorstore.Eq(store.FieldVisibility, string(model.VisibilityPrivate)),
				vectorstore.Eq(store.FieldOwner, actor),
			),
			vectorstore.Eq(store.FieldVisibility, string(model.VisibilityShared)),
		))
	}
	return vectorstore.And(parts...)
}

// containsAny implements the OR-semantics containment filter: pass when no
// filter values were requested, or when any requested value is present.
func containsAny(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
