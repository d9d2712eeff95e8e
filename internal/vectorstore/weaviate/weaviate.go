// Package weaviate implements vectorstore.Store against a Weaviate instance
// using the official Go client. Memories live in a single BerryMemory class;
// set-valued fields arrive JSON-encoded because the class holds only scalar
// properties.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// ClassName is the Weaviate class holding all memory records.
const ClassName = "BerryMemory"

// metadataFields lists every scalar property besides memoryId and content.
var metadataFields = []string{
	"memoryType", "createdAt", "createdBy", "owner", "visibility",
	"sharedWith", "tags", "references", "response", "respondedBy", "respondedAt",
}

type store struct {
	client  *weaviate.Client
	baseURL string // host:port without scheme
	alpha   float32
	log     zerolog.Logger
}

// New constructs a Store backed by Weaviate at baseURL (host:port, no
// scheme). alpha balances keyword vs vector ranking for hybrid queries.
func New(baseURL string, alpha float32, log zerolog.Logger) (vectorstore.Store, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &store{client: cl, baseURL: baseURL, alpha: alpha, log: log}, nil
}

// objectID derives a deterministic Weaviate object UUID from the domain ID,
// which is not itself a UUID.
func objectID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (s *store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	props := map[string]interface{}{
		"memoryId": rec.ID,
		"content":  rec.Content,
	}
	for k, v := range rec.Metadata {
		props[k] = v
	}
	oid := objectID(rec.ID)
	// Overwrite semantics: drop any previous object for this ID first. A
	// delete on an absent object is harmless.
	_ = s.client.Data().Deleter().WithClassName(ClassName).WithID(oid).Do(ctx)
	_, err := s.client.Data().Creator().
		WithClassName(ClassName).
		WithID(oid).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: weaviate upsert: %v", model.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) (*vectorstore.Record, error) {
	where := filters.Where().WithPath([]string{"memoryId"}).WithOperator(filters.Equal).WithValueText(id)
	recs, err := s.run(ctx, s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithWhere(where).
		WithLimit(1).
		WithFields(recordFields()...))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	return &recs[0], nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	err := s.client.Data().Deleter().
		WithClassName(ClassName).
		WithID(objectID(id)).
		Do(ctx)
	if err != nil && !strings.Contains(err.Error(), "404") {
		return fmt.Errorf("%w: weaviate delete: %v", model.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *store) List(ctx context.Context, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	req := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithLimit(limit).
		WithFields(recordFields()...)
	if w := translateWhere(where); w != nil {
		req = req.WithWhere(w)
	}
	return s.run(ctx, req)
}

func (s *store) Query(ctx context.Context, query string, vec []float32, where *vectorstore.Where, limit int) ([]vectorstore.Record, error) {
	s.log.Debug().Str("query", query).Int("limit", limit).Int("vectorLength", len(vec)).Msg("weaviate query")

	hy := (&gql.HybridArgumentBuilder{}).
		WithQuery(query).
		WithAlpha(s.alpha).
		WithProperties([]string{"content"})
	if len(vec) > 0 {
		hy = hy.WithVector(vec)
	}

	req := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithHybrid(hy).
		WithLimit(limit).
		WithFields(recordFields()...)
	if w := translateWhere(where); w != nil {
		req = req.WithWhere(w)
	}
	return s.run(ctx, req)
}

// run executes a GraphQL Get and decodes the class payload into records.
func (s *store) run(ctx context.Context, req *gql.GetBuilder) ([]vectorstore.Record, error) {
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: weaviate graphql: %v", model.ErrBackendUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: weaviate graphql: %s", model.ErrBackendUnavailable, formatGraphQLErrors(resp.Errors))
	}
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []vectorstore.Record{}, nil
	}
	raw, ok := getData[ClassName].([]interface{})
	if !ok {
		return []vectorstore.Record{}, nil
	}
	out := make([]vectorstore.Record, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec := vectorstore.Record{Metadata: map[string]interface{}{}}
		rec.ID, _ = m["memoryId"].(string)
		rec.Content, _ = m["content"].(string)
		for _, f := range metadataFields {
			if v, ok := m[f]; ok && v != nil {
				rec.Metadata[f] = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordFields() []gql.Field {
	fields := []gql.Field{{Name: "memoryId"}, {Name: "content"}}
	for _, f := range metadataFields {
		fields = append(fields, gql.Field{Name: f})
	}
	return fields
}

// translateWhere maps the backend-neutral predicate tree onto the client's
// filter builder.
func translateWhere(w *vectorstore.Where) *filters.WhereBuilder {
	if w == nil {
		return nil
	}
	switch w.Operator {
	case vectorstore.OpAnd, vectorstore.OpOr:
		op := filters.And
		if w.Operator == vectorstore.OpOr {
			op = filters.Or
		}
		operands := make([]*filters.WhereBuilder, 0, len(w.Operands))
		for _, o := range w.Operands {
			if t := translateWhere(o); t != nil {
				operands = append(operands, t)
			}
		}
		return filters.Where().WithOperator(op).WithOperands(operands)
	case vectorstore.OpEqual:
		return leaf(w, filters.Equal)
	case vectorstore.OpGreaterThanEqual:
		return leaf(w, filters.GreaterThanEqual)
	case vectorstore.OpLessThanEqual:
		return leaf(w, filters.LessThanEqual)
	}
	return nil
}

func leaf(w *vectorstore.Where, op filters.WhereOperator) *filters.WhereBuilder {
	b := filters.Where().WithPath([]string{w.Field}).WithOperator(op)
	switch v := w.Value.(type) {
	case string:
		return b.WithValueText(v)
	case time.Time:
		return b.WithValueDate(v)
	case bool:
		return b.WithValueBoolean(v)
	case float64:
		return b.WithValueNumber(v)
	case int:
		return b.WithValueInt(int64(v))
	case int64:
		return b.WithValueInt(v)
	}
	return b.WithValueText(fmt.Sprintf("%v", w.Value))
}

// HealthPing implements vectorstore.HealthPinger by probing /v1/meta.
func (s *store) HealthPing(ctx context.Context) error {
	if s == nil || s.baseURL == "" {
		return fmt.Errorf("weaviate baseURL missing")
	}
	url := s.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

// formatGraphQLErrors returns a compact string for logging and wrapping.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
