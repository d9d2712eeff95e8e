package vectorstoretest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/geoffjay/berry/internal/vectorstore"
)

func TestFakeCompliance(t *testing.T) {
	Run(t, func(t *testing.T) vectorstore.Store { return NewFake() })
}

// Exercises concurrent reads and writes; meaningful under the race detector.
func TestFakeConcurrentUse(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("mem_%d", i)
			_ = f.Upsert(ctx, vectorstore.Record{
				ID:       id,
				Content:  "concurrent note",
				Metadata: map[string]interface{}{"owner": "alice"},
			})
			_, _ = f.List(ctx, vectorstore.Eq("owner", "alice"), 5)
			_, _ = f.Query(ctx, "note", nil, nil, 5)
			_, _ = f.Get(ctx, id)
		}(i)
	}
	wg.Wait()
}
