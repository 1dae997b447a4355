package service

import (
	"context"
	"errors"
	"strings"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MatchKind describes how a purchase line item was matched to a stock item.
type MatchKind string

const (
	MatchID          MatchKind = "id"           // exact identifier hit
	MatchExactName   MatchKind = "exact_name"   // normalized name + unit equality
	MatchSimilarName MatchKind = "similar_name" // approximate pick among multiple name hits
	MatchNone        MatchKind = "none"         // no existing row — caller must create
)

// MaterialResolver matches a purchased line item to an existing stock item.
//
// Purchase line items frequently carry a purchase-scoped identifier unrelated
// to any warehouse id (an item added ad hoc to a purchase before ever existing
// in the warehouse), so name+unit is the durable secondary key. Unit is part
// of the key: the same material name under "kg" and "gram" must never merge.
type MaterialResolver struct {
	stock repository.StockRepository
}

func NewMaterialResolver(stock repository.StockRepository) *MaterialResolver {
	return &MaterialResolver{stock: stock}
}

// Resolve returns the matched stock item, or (nil, MatchNone, nil) when no
// row exists yet. A store failure is returned as-is so the caller can
// classify it.
func (r *MaterialResolver) Resolve(ctx context.Context, candidateID, name, unit string, ownerID uuid.UUID) (*model.StockItem, MatchKind, error) {
	// Tier 1: exact identifier, owner-scoped.
	if id, err := uuid.Parse(candidateID); err == nil && id != uuid.Nil {
		item, err := r.stock.FindByID(ctx, id, ownerID)
		switch {
		case err == nil:
			return item, MatchID, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			// purchase-scoped id — fall through to the name lookup
		default:
			return nil, MatchNone, err
		}
	}

	// Tier 2: normalized name + exact unit.
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, MatchNone, nil
	}

	items, err := r.stock.FindByNameAndUnit(ctx, normalized, unit, ownerID)
	if err != nil {
		return nil, MatchNone, err
	}
	if len(items) == 0 {
		return nil, MatchNone, nil
	}

	for i := range items {
		if strings.ToLower(strings.TrimSpace(items[i].Name)) == normalized {
			return &items[i], MatchExactName, nil
		}
	}

	// Multiple rows but none byte-equal after normalization: take the oldest
	// (FindByNameAndUnit orders by created_at) and flag the approximation.
	log.Warn().
		Str("name", name).
		Str("unit", unit).
		Str("matched", items[0].Name).
		Int("candidates", len(items)).
		Msg("resolver: approximate name match")
	return &items[0], MatchSimilarName, nil
}
