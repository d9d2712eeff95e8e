// Package chromem implements vectorstore.Store on chromem-go, a pure-Go
// embedded vector database. It backs the "local" build target where no
// Weaviate instance is available. Vectors live in the chromem collection;
// a metadata mirror serves Get, List and predicate evaluation, which the
// collection cannot express.
package chromem

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// Embedder produces vector representations for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type store struct {
	db    *chromem.DB
	col   *chromem.Collection
	embed Embedder

	mu    sync.RWMutex
	recs  map[string]vectorstore.Record
	order []string // insertion order for stable listing
}

// New creates an embedded store. The embedder is required: chromem has no
// built-in text index, so every record and query is embedded through it.
func New(embed Embedder) (vectorstore.Store, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("berry", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &store{
		db:    db,
		col:   col,
		embed: embed,
		recs:  make(map[string]vectorstore.Record),
	}, nil
}

func (s *store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	vec, err := s.embed.Embed(ctx, rec.Content)
	if err != nil {
		return fmt.Errorf("%w: embed content: %v", model.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	if _, exists := s.recs[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.recs[rec.ID] = cloneRecord(rec)
	s.mu.Unlock()

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: vec,
		Metadata:  map[string]string{"memoryId": rec.ID},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: add document: %v", model.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) (*vectorstore.Record, error) {
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.recs[id]; ok {
		delete(s.recs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	// chromem tolerates deleting an absent ID.
	return s.col.Delete(ctx, nil, nil, id)
}

func (s *store) List(ctx context.Context, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.Record, 0, limit)
	for _, id := range s.order {
		rec := s.recs[id]
		if !where.Matches(rec.Metadata) {
			continue
		}
		out = append(out, cloneRecord(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *store) Query(ctx context.Context, query string, vec []float32, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	if len(vec) == 0 {
		v, err := s.embed.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: embed query: %v", model.ErrBackendUnavailable, err)
		}
		vec = v
	}

	s.mu.RLock()
	total := len(s.recs)
	s.mu.RUnlock()
	if total == 0 {
		return []vectorstore.Record{}, nil
	}

	// The predicate is evaluated here after chromem ranks, so a capped
	// fetch could drop matches ranked below non-matching records. Rank the
	// whole collection whenever a predicate is present and cap afterwards;
	// chromem also rejects nResults larger than the collection.
	n := limit
	if where != nil || n <= 0 || n > total {
		n = total
	}

	results, err := s.col.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: chromem query: %v", model.ErrBackendUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.Record, 0, n)
	for _, res := range results {
		rec, ok := s.recs[res.ID]
		if !ok || !where.Matches(rec.Metadata) {
			continue
		}
		out = append(out, cloneRecord(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// HealthPing implements vectorstore.HealthPinger; the embedded store is
// healthy whenever the process is.
func (s *store) HealthPing(ctx context.Context) error { return nil }

func cloneRecord(rec vectorstore.Record) vectorstore.Record {
	meta := make(map[string]interface{}, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	return vectorstore.Record{ID: rec.ID, Content: rec.Content, Metadata: meta}
}
