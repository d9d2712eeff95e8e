package weaviate

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// Bootstrap ensures the BerryMemory class exists. Existing classes are left
// untouched; records created before the visibility property was added keep
// working because absent visibility reads as public.
func Bootstrap(ctx context.Context, baseURL string) error {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	class := &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "memoryId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "memoryType", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"date"}},
			{Name: "createdBy", DataType: []string{"text"}},
			{Name: "owner", DataType: []string{"text"}},
			{Name: "visibility", DataType: []string{"text"}},
			// Set-valued fields are JSON-encoded strings; the class cannot
			// hold arrays we could filter on.
			{Name: "sharedWith", DataType: []string{"text"}},
			{Name: "tags", DataType: []string{"text"}},
			{Name: "references", DataType: []string{"text"}},
			{Name: "response", DataType: []string{"text"}},
			{Name: "respondedBy", DataType: []string{"text"}},
			{Name: "respondedAt", DataType: []string{"date"}},
		},
	}

	ex, err := cl.Schema().ClassGetter().WithClassName(ClassName).Do(cctx)
	if err == nil && ex != nil {
		return ensureVisibilityProperty(cctx, cl, ex)
	}
	if err := cl.Schema().ClassCreator().WithClass(class).Do(cctx); err != nil {
		return fmt.Errorf("create class %s: %w", ClassName, err)
	}
	return nil
}

// ensureVisibilityProperty adds the visibility property to classes created
// before access control existed.
func ensureVisibilityProperty(ctx context.Context, cl *weaviate.Client, ex *models.Class) error {
	for _, p := range ex.Properties {
		if p.Name == "visibility" {
			return nil
		}
	}
	prop := &models.Property{Name: "visibility", DataType: []string{"text"}}
	return cl.Schema().PropertyCreator().WithClassName(ClassName).WithProperty(prop).Do(ctx)
}
