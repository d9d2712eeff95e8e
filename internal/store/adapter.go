// Package store is the storage adapter between the domain model and the
// scalar-metadata vector backend. Set-valued fields (tags, references,
// sharedWith) are JSON-encoded at this boundary and decoded immediately
// after every read; encoded strings never leak past this package.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// Metadata field names as stored in the backend. The search engine builds
// predicates against these.
const (
	FieldType        = "memoryType"
	FieldCreatedAt   = "createdAt"
	FieldCreatedBy   = "createdBy"
	FieldOwner       = "owner"
	FieldVisibility  = "visibility"
	FieldSharedWith  = "sharedWith"
	FieldTags        = "tags"
	FieldReferences  = "references"
	FieldResponse    = "response"
	FieldRespondedBy = "respondedBy"
	FieldRespondedAt = "respondedAt"
)

// IDPrefix precedes the ULID in generated memory IDs.
const IDPrefix = "mem_"

// Adapter performs CRUD for memories against a vectorstore.Store. It is an
// explicitly constructed dependency, injected wherever needed.
type Adapter struct {
	vs  vectorstore.Store
	log zerolog.Logger
}

// New builds an Adapter over the given backend.
func New(vs vectorstore.Store, log zerolog.Logger) *Adapter {
	return &Adapter{vs: vs, log: log}
}

// NewID generates a memory ID: prefix + ULID (millisecond timestamp +
// random suffix). Uniqueness is best-effort via randomness; collisions are
// never checked.
func NewID() string {
	return IDPrefix + ulid.Make().String()
}

// Create resolves defaults (owner from createdBy, visibility public),
// stamps the creation time and writes the record.
func (a *Adapter) Create(ctx context.Context, req model.CreateMemoryRequest) (*model.Memory, error) {
	m := &model.Memory{
		ID:         NewID(),
		Content:    req.Content,
		Type:       req.Type,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  req.CreatedBy,
		Owner:      req.Owner,
		Visibility: req.Visibility,
		SharedWith: req.SharedWith,
		Tags:       req.Tags,
		References: req.References,
	}
	if m.Owner == "" {
		m.Owner = m.CreatedBy
	}
	if m.Visibility == "" {
		m.Visibility = model.VisibilityPublic
	}
	if err := a.vs.Upsert(ctx, encode(m)); err != nil {
		return nil, err
	}
	a.log.Debug().Str("id", m.ID).Str("type", string(m.Type)).Str("visibility", string(m.Visibility)).Msg("memory created")
	return m, nil
}

// Get fetches and decodes one memory. Absent encoded fields decode to empty
// collections, not errors.
func (a *Adapter) Get(ctx context.Context, id string) (*model.Memory, error) {
	rec, err := a.vs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m := Decode(*rec)
	return &m, nil
}

// Delete verifies existence before deleting; two round trips by design, so
// callers can distinguish a clean not-found from a successful delete.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	if _, err := a.vs.Get(ctx, id); err != nil {
		return err
	}
	if err := a.vs.Delete(ctx, id); err != nil {
		return err
	}
	a.log.Debug().Str("id", id).Msg("memory deleted")
	return nil
}

// UpdateVisibility overwrites visibility and sharedWith, preserving every
// other field from the stored record. Last-writer-wins; there is no
// compare-and-swap on this path.
func (a *Adapter) UpdateVisibility(ctx context.Context, id string, vis model.Visibility, sharedWith []string) (*model.Memory, error) {
	rec, err := a.vs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m := Decode(*rec)
	m.Visibility = vis
	m.SharedWith = sharedWith
	if err := a.vs.Upsert(ctx, encode(&m)); err != nil {
		return nil, err
	}
	a.log.Debug().Str("id", id).Str("visibility", string(vis)).Int("sharedWith", len(sharedWith)).Msg("visibility updated")
	return &m, nil
}

// List returns decoded memories matching where, in backend order.
func (a *Adapter) List(ctx context.Context, where *vectorstore.Where, limit int) ([]model.Memory, error) {
	recs, err := a.vs.List(ctx, where, limit)
	if err != nil {
		return nil, err
	}
	return decodeAll(recs), nil
}

// Query returns decoded memories ranked by similarity to query.
func (a *Adapter) Query(ctx context.Context, query string, vec []float32, where *vectorstore.Where, limit int) ([]model.Memory, error) {
	recs, err := a.vs.Query(ctx, query, vec, where, limit)
	if err != nil {
		return nil, err
	}
	return decodeAll(recs), nil
}

func decodeAll(recs []vectorstore.Record) []model.Memory {
	out := make([]model.Memory, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Decode(rec))
	}
	return out
}

func encode(m *model.Memory) vectorstore.Record {
	meta := map[string]interface{}{
		FieldType:      string(m.Type),
		FieldCreatedAt: m.CreatedAt.UTC().Format(vectorstore.TimeLayout),
	}
	if m.CreatedBy != "" {
		meta[FieldCreatedBy] = m.CreatedBy
	}
	if m.Owner != "" {
		meta[FieldOwner] = m.Owner
	}
	if m.Visibility != "" {
		meta[FieldVisibility] = string(m.Visibility)
	}
	if s := encodeStrings(m.SharedWith); s != "" {
		meta[FieldSharedWith] = s
	}
	if s := encodeStrings(m.Tags); s != "" {
		meta[FieldTags] = s
	}
	if s := encodeStrings(m.References); s != "" {
		meta[FieldReferences] = s
	}
	if m.Response != nil {
		meta[FieldResponse] = *m.Response
	}
	if m.RespondedBy != nil {
		meta[FieldRespondedBy] = *m.RespondedBy
	}
	if m.RespondedAt != nil {
		meta[FieldRespondedAt] = m.RespondedAt.UTC().Format(vectorstore.TimeLayout)
	}
	return vectorstore.Record{ID: m.ID, Content: m.Content, Metadata: meta}
}

// Decode maps a backend record onto the domain model. Exported for the
// search engine, which materializes query results itself.
func Decode(rec vectorstore.Record) model.Memory {
	meta := rec.Metadata
	m := model.Memory{
		ID:         rec.ID,
		Content:    rec.Content,
		Type:       model.MemoryType(str(meta[FieldType])),
		CreatedBy:  str(meta[FieldCreatedBy]),
		Owner:      str(meta[FieldOwner]),
		Visibility: model.Visibility(str(meta[FieldVisibility])),
		SharedWith: decodeStrings(str(meta[FieldSharedWith])),
		Tags:       decodeStrings(str(meta[FieldTags])),
		References: decodeStrings(str(meta[FieldReferences])),
	}
	if t, ok := parseTime(str(meta[FieldCreatedAt])); ok {
		m.CreatedAt = t
	}
	if v := str(meta[FieldResponse]); v != "" {
		m.Response = &v
	}
	if v := str(meta[FieldRespondedBy]); v != "" {
		m.RespondedBy = &v
	}
	if t, ok := parseTime(str(meta[FieldRespondedAt])); ok {
		m.RespondedAt = &t
	}
	return m
}

func encodeStrings(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		// Treat undecodable metadata as empty rather than failing the read.
		return nil
	}
	return out
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{vectorstore.TimeLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
