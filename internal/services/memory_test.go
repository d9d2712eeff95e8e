package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/search"
	"github.com/geoffjay/berry/internal/store"
	"github.com/geoffjay/berry/internal/vectorstore/vectorstoretest"
	"github.com/geoffjay/berry/internal/visibility"
)

func newTestService(t *testing.T) *MemoryService {
	t.Helper()
	fake := vectorstoretest.NewFake()
	adapter := store.New(fake, zerolog.Nop())
	engine := search.NewEngine(adapter, nil, visibility.DefaultAdminActor, 0, zerolog.Nop())
	return NewMemoryService(adapter, engine, visibility.DefaultAdminActor, model.TypeInformation, zerolog.Nop())
}

func asActor(actor string) *model.VisibilityContext {
	return &model.VisibilityContext{Actor: actor}
}

func TestCreateMemory_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{Type: model.TypeInformation})
	assert.ErrorIs(t, err, model.ErrValidation, "content required")

	_, err = svc.CreateMemory(ctx, model.CreateMemoryRequest{Content: "x", Type: "musing"})
	assert.ErrorIs(t, err, model.ErrValidation, "unknown type rejected")

	_, err = svc.CreateMemory(ctx, model.CreateMemoryRequest{Content: "x", Visibility: "everyone"})
	assert.ErrorIs(t, err, model.ErrValidation, "unknown visibility rejected")

	// Absent type falls back to the configured default.
	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.TypeInformation, m.Type)
}

func TestGetMemory_LegacyCallerSkipsPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content: "secret", CreatedBy: "alice", Visibility: model.VisibilityPrivate,
	})
	require.NoError(t, err)

	// No actor: the check is skipped entirely.
	got, err := svc.GetMemory(ctx, m.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Content)

	// An asserted non-owner is denied.
	_, err = svc.GetMemory(ctx, m.ID, asActor("bob"))
	assert.ErrorIs(t, err, model.ErrAccessDenied)
}

func TestDeleteMemory_RequiresOwnershipEvenWhenReadDoesNot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content: "secret", CreatedBy: "alice", Visibility: model.VisibilityPrivate,
	})
	require.NoError(t, err)

	// Reads without an actor succeed (legacy skip)...
	_, err = svc.GetMemory(ctx, m.ID, nil)
	require.NoError(t, err)

	// ...but an asserted non-owner cannot delete.
	err = svc.DeleteMemory(ctx, m.ID, asActor("bob"))
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	// The record is untouched after the denial.
	_, err = svc.GetMemory(ctx, m.ID, asActor("alice"))
	require.NoError(t, err)
}

func TestDeleteMemory_LegacyPathSkipsCheck(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content: "secret", CreatedBy: "alice", Visibility: model.VisibilityPrivate,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMemory(ctx, m.ID, nil))
	_, err = svc.GetMemory(ctx, m.ID, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateVisibility_AlwaysChecksOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content: "note", CreatedBy: "alice",
	})
	require.NoError(t, err)

	// No legacy skip on this path.
	_, err = svc.UpdateVisibility(ctx, m.ID, model.VisibilityPrivate, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.UpdateVisibility(ctx, m.ID, model.VisibilityPrivate, nil, asActor("bob"))
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	_, err = svc.UpdateVisibility(ctx, m.ID, "friends-only", nil, asActor("alice"))
	assert.ErrorIs(t, err, model.ErrValidation)

	got, err := svc.UpdateVisibility(ctx, m.ID, model.VisibilityShared, []string{"bob"}, asActor("alice"))
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityShared, got.Visibility)

	// bob can now read it.
	_, err = svc.GetMemory(ctx, m.ID, asActor("bob"))
	require.NoError(t, err)

	// Admin override may change anyone's visibility.
	_, err = svc.UpdateVisibility(ctx, m.ID, model.VisibilityPublic, nil,
		&model.VisibilityContext{Actor: visibility.DefaultAdminActor, AdminOverride: true})
	require.NoError(t, err)

	_, err = svc.UpdateVisibility(ctx, "mem_MISSING", model.VisibilityPublic, nil, asActor("alice"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEndToEndScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content:    "Buy milk",
		Type:       model.TypeInformation,
		Owner:      "alice",
		Visibility: model.VisibilityPrivate,
	})
	require.NoError(t, err)

	_, err = svc.GetMemory(ctx, m.ID, asActor("bob"))
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	got, err := svc.GetMemory(ctx, m.ID, asActor("alice"))
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Content)

	err = svc.DeleteMemory(ctx, m.ID, asActor("bob"))
	assert.ErrorIs(t, err, model.ErrAccessDenied)

	require.NoError(t, svc.DeleteMemory(ctx, m.ID, asActor("alice")))

	_, err = svc.GetMemory(ctx, m.ID, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSearch_FlowsThroughEngine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateMemory(ctx, model.CreateMemoryRequest{
		Content: "remember the milk", CreatedBy: "alice",
	})
	require.NoError(t, err)

	results, err := svc.Search(ctx, model.SearchRequest{Query: "milk", Context: asActor("alice")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "remember the milk", results[0].Memory.Content)
}
