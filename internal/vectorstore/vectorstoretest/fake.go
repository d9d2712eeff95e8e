// Package vectorstoretest provides a deterministic in-memory Store for unit
// tests, plus a compliance suite real backends can run against.
package vectorstoretest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// Fake is an insertion-ordered in-memory vectorstore.Store. Query ranks by
// naive token overlap with the record content, which is stable and good
// enough to assert ordering in tests.
type Fake struct {
	mu    sync.RWMutex
	recs  map[string]vectorstore.Record
	order []string

	// Err, when set, is returned from every call to simulate an unreachable
	// backend.
	Err error

	// LastLimit records the cap passed to the most recent List/Query call so
	// tests can assert over-fetch behavior.
	LastLimit int
}

// NewFake returns an empty fake store.
func NewFake() *Fake {
	return &Fake{recs: make(map[string]vectorstore.Record)}
}

func (f *Fake) Upsert(ctx context.Context, rec vectorstore.Record) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[rec.ID]; !ok {
		f.order = append(f.order, rec.ID)
	}
	f.recs[rec.ID] = clone(rec)
	return nil
}

func (f *Fake) Get(ctx context.Context, id string) (*vectorstore.Record, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	out := clone(rec)
	return &out, nil
}

func (f *Fake) Delete(ctx context.Context, id string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[id]; !ok {
		return nil
	}
	delete(f.recs, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *Fake) List(ctx context.Context, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	// Write lock: LastLimit is mutated here.
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLimit = limit
	out := make([]vectorstore.Record, 0, limit)
	for _, id := range f.order {
		rec := f.recs[id]
		if !where.Matches(rec.Metadata) {
			continue
		}
		out = append(out, clone(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) Query(ctx context.Context, query string, vec []float32, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	// Write lock: LastLimit is mutated here.
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLimit = limit

	type scored struct {
		rec   vectorstore.Record
		score int
		pos   int
	}
	var candidates []scored
	for pos, id := range f.order {
		rec := f.recs[id]
		if !where.Matches(rec.Metadata) {
			continue
		}
		candidates = append(candidates, scored{rec: clone(rec), score: overlap(query, rec.Content), pos: pos})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pos < candidates[j].pos
	})
	out := make([]vectorstore.Record, 0, limit)
	for _, c := range candidates {
		out = append(out, c.rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// overlap counts query tokens present in content, case-insensitive.
func overlap(query, content string) int {
	c := strings.ToLower(content)
	n := 0
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(c, tok) {
			n++
		}
	}
	return n
}

func clone(rec vectorstore.Record) vectorstore.Record {
	meta := make(map[string]interface{}, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	return vectorstore.Record{ID: rec.ID, Content: rec.Content, Metadata: meta}
}
