package vectorstoretest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/vectorstore"
)

// Run exercises a minimal compliance suite against a Store implementation.
// makeStore should return a clean, isolated store per invocation.
func Run(t *testing.T, makeStore func(t *testing.T) vectorstore.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	id := "mem_" + uuid.New().String()
	rec := vectorstore.Record{
		ID:      id,
		Content: "the quick brown fox",
		Metadata: map[string]interface{}{
			"owner":      "alice",
			"visibility": "private",
		},
	}

	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil || got == nil || got.Content != rec.Content {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.Metadata["owner"] != "alice" {
		t.Fatalf("Get: metadata lost: %v", got.Metadata)
	}

	// Overwrite preserves identity, replaces fields.
	rec.Metadata["visibility"] = "public"
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, err = s.Get(ctx, id)
	if err != nil || got.Metadata["visibility"] != "public" {
		t.Fatalf("Get after overwrite: got=%v err=%v", got, err)
	}

	// Predicate listing.
	lst, err := s.List(ctx, vectorstore.Eq("owner", "alice"), 10)
	if err != nil || len(lst) != 1 {
		t.Fatalf("List: n=%d err=%v", len(lst), err)
	}
	lst, err = s.List(ctx, vectorstore.Eq("owner", "bob"), 10)
	if err != nil || len(lst) != 0 {
		t.Fatalf("List non-match: n=%d err=%v", len(lst), err)
	}

	// Similarity query returns the record for an overlapping query.
	hits, err := s.Query(ctx, "quick fox", nil, nil, 5)
	if err != nil || len(hits) != 1 || hits[0].ID != id {
		t.Fatalf("Query: hits=%v err=%v", hits, err)
	}

	// Delete, then Get reports not-found (never backend-unavailable).
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get after delete: want ErrNotFound, got %v", err)
	}
	// Idempotent delete.
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	// Query applies the predicate before the result cap: a match ranked
	// below several non-matching records must still be returned.
	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, vectorstore.Record{
			ID:       fmt.Sprintf("mem_pub_%d", i),
			Content:  "release notes draft copy",
			Metadata: map[string]interface{}{"visibility": "public"},
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	privID := "mem_" + uuid.New().String()
	if err := s.Upsert(ctx, vectorstore.Record{
		ID:       privID,
		Content:  "weekend plans",
		Metadata: map[string]interface{}{"visibility": "private"},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	hits, err = s.Query(ctx, "release notes draft", nil, vectorstore.Eq("visibility", "private"), 2)
	if err != nil || len(hits) != 1 || hits[0].ID != privID {
		t.Fatalf("filtered Query: hits=%v err=%v", hits, err)
	}
}
