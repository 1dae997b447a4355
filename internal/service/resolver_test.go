package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ExactID(t *testing.T) {
	repo := newStubStockRepo()
	owner := uuid.New()
	id := uuid.New()
	repo.items[id] = &model.StockItem{ID: id, OwnerID: owner, Name: "Tepung Terigu", Unit: "kg"}

	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), id.String(), "anything", "kg", owner)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, service.MatchID, kind)
	assert.Equal(t, id, item.ID)
}

func TestResolver_IDMissFallsBackToName(t *testing.T) {
	// Purchase-scoped ids are valid UUIDs that match no warehouse row.
	repo := newStubStockRepo()
	owner := uuid.New()
	id := uuid.New()
	repo.items[id] = &model.StockItem{ID: id, OwnerID: owner, Name: "Tepung Terigu", Unit: "kg"}

	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), uuid.NewString(), "  TEPUNG terigu ", "kg", owner)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, service.MatchExactName, kind)
	assert.Equal(t, id, item.ID)
}

func TestResolver_UnitIsPartOfTheKey(t *testing.T) {
	repo := newStubStockRepo()
	owner := uuid.New()
	id := uuid.New()
	repo.items[id] = &model.StockItem{ID: id, OwnerID: owner, Name: "Gula", Unit: "kg"}

	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), "", "Gula", "gram", owner)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, service.MatchNone, kind)
}

func TestResolver_OwnerScoped(t *testing.T) {
	repo := newStubStockRepo()
	other := uuid.New()
	id := uuid.New()
	repo.items[id] = &model.StockItem{ID: id, OwnerID: other, Name: "Gula", Unit: "kg"}

	r := service.NewMaterialResolver(repo)
	item, _, err := r.Resolve(context.Background(), id.String(), "Gula", "kg", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestResolver_ExactNamePreferredOverFuzzy(t *testing.T) {
	repo := newStubStockRepo()
	owner := uuid.New()
	fuzzyID, exactID := uuid.New(), uuid.New()
	base := time.Now()
	// The fuzzy hit is older, the exact hit newer: exact still wins.
	repo.items[fuzzyID] = &model.StockItem{ID: fuzzyID, OwnerID: owner, Name: "Gula Pasir Halus", Unit: "kg", CreatedAt: base.Add(-time.Hour)}
	repo.items[exactID] = &model.StockItem{ID: exactID, OwnerID: owner, Name: "Gula Pasir", Unit: "kg", CreatedAt: base}

	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), "", "gula pasir", "kg", owner)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, service.MatchExactName, kind)
	assert.Equal(t, exactID, item.ID)
}

func TestResolver_ApproximatePicksOldest(t *testing.T) {
	repo := newStubStockRepo()
	owner := uuid.New()
	oldID, newID := uuid.New(), uuid.New()
	base := time.Now()
	// No stored name equals the query after normalization, so the oldest
	// fuzzy hit is taken and flagged as approximate.
	repo.items[oldID] = &model.StockItem{ID: oldID, OwnerID: owner, Name: "Gula Pasir Halus", Unit: "kg", CreatedAt: base.Add(-time.Hour)}
	repo.items[newID] = &model.StockItem{ID: newID, OwnerID: owner, Name: "Gula Pasir Kasar", Unit: "kg", CreatedAt: base}

	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), "", "gula pasir", "kg", owner)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, service.MatchSimilarName, kind)
	assert.Equal(t, oldID, item.ID)
}

func TestResolver_NoMatch(t *testing.T) {
	repo := newStubStockRepo()
	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), "", "Garam", "kg", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, service.MatchNone, kind)
}

func TestResolver_BlankNameNoMatch(t *testing.T) {
	repo := newStubStockRepo()
	r := service.NewMaterialResolver(repo)
	item, kind, err := r.Resolve(context.Background(), "not-a-uuid", "   ", "kg", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, service.MatchNone, kind)
}
