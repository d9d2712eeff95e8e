// Package services orchestrates memory use cases: validation, ownership
// checks, and delegation to the storage adapter and search engine.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/search"
	"github.com/geoffjay/berry/internal/store"
	"github.com/geoffjay/berry/internal/visibility"
)

// MemoryService exposes the access-controlled memory operations. All
// dependencies are injected; the service holds no global state.
type MemoryService struct {
	adapter     *store.Adapter
	engine      *search.Engine
	admin       string
	defaultType model.MemoryType
	log         zerolog.Logger
}

// NewMemoryService builds a service. admin is the reserved administrator
// identity; defaultType fills absent memory types on create.
func NewMemoryService(adapter *store.Adapter, engine *search.Engine, admin string, defaultType model.MemoryType, log zerolog.Logger) *MemoryService {
	if admin == "" {
		admin = visibility.DefaultAdminActor
	}
	if defaultType == "" {
		defaultType = model.TypeInformation
	}
	return &MemoryService{adapter: adapter, engine: engine, admin: admin, defaultType: defaultType, log: log}
}

// CreateMemory validates the request and persists a new memory. Owner and
// visibility defaults are resolved by the adapter at this point and never
// revisited.
func (s *MemoryService) CreateMemory(ctx context.Context, req model.CreateMemoryRequest) (*model.Memory, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", model.ErrValidation)
	}
	if req.Type == "" {
		req.Type = s.defaultType
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid type %q", model.ErrValidation, req.Type)
	}
	if req.Visibility != "" && !req.Visibility.Valid() {
		return nil, fmt.Errorf("%w: invalid visibility %q", model.ErrValidation, req.Visibility)
	}
	return s.adapter.Create(ctx, req)
}

// GetMemory fetches one memory by ID. When vc carries an actor the
// visibility policy gates the read; without one the read proceeds unchecked,
// a deliberate backward-compatibility allowance for legacy callers.
func (s *MemoryService) GetMemory(ctx context.Context, id string, vc *model.VisibilityContext) (*model.Memory, error) {
	m, err := s.adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if vc != nil && vc.Actor != "" {
		if !visibility.CanAccess(m, vc.Actor, vc.AdminOverride, s.admin) {
			return nil, fmt.Errorf("%w: memory %s", model.ErrAccessDenied, id)
		}
	}
	return m, nil
}

// DeleteMemory removes a memory. With an actor present the ownership check
// runs before the mutating call; without one the legacy path skips it.
func (s *MemoryService) DeleteMemory(ctx context.Context, id string, vc *model.VisibilityContext) error {
	if vc != nil && vc.Actor != "" {
		m, err := s.adapter.Get(ctx, id)
		if err != nil {
			return err
		}
		if !visibility.CanMutate(m, vc.Actor, vc.AdminOverride, s.admin) {
			s.log.Info().Str("id", id).Str("actor", vc.Actor).Msg("delete denied")
			return fmt.Errorf("%w: memory %s", model.ErrAccessDenied, id)
		}
	}
	return s.adapter.Delete(ctx, id)
}

// UpdateVisibility changes a memory's visibility and share list. Unlike
// reads and deletes there is no legacy skip: the ownership check always
// runs, so an actor is required.
func (s *MemoryService) UpdateVisibility(ctx context.Context, id string, vis model.Visibility, sharedWith []string, vc *model.VisibilityContext) (*model.Memory, error) {
	if !vis.Valid() {
		return nil, fmt.Errorf("%w: invalid visibility %q", model.ErrValidation, vis)
	}
	if vc == nil || vc.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required to change visibility", model.ErrValidation)
	}
	m, err := s.adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.CanMutate(m, vc.Actor, vc.AdminOverride, s.admin) {
		s.log.Info().Str("id", id).Str("actor", vc.Actor).Msg("visibility change denied")
		return nil, fmt.Errorf("%w: memory %s", model.ErrAccessDenied, id)
	}
	return s.adapter.UpdateVisibility(ctx, id, vis, sharedWith)
}

// Search delegates to the engine; access control happens inside it.
func (s *MemoryService) Search(ctx context.Context, req model.SearchRequest) ([]model.SearchResult, error) {
	return s.engine.Search(ctx, req)
}
