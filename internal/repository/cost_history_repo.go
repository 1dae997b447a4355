package repository

import (
	"context"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CostHistoryRepository persists the immutable WAC audit trail.
type CostHistoryRepository interface {
	Create(ctx context.Context, h *model.CostHistory) error
	ListByStockItem(ctx context.Context, stockItemID, ownerID uuid.UUID, limit int) ([]model.CostHistory, error)
}

type costHistoryRepo struct{ db *gorm.DB }

func NewCostHistoryRepository(db *gorm.DB) CostHistoryRepository {
	return &costHistoryRepo{db: db}
}

func (r *costHistoryRepo) Create(ctx context.Context, h *model.CostHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *costHistoryRepo) ListByStockItem(ctx context.Context, stockItemID, ownerID uuid.UUID, limit int) ([]model.CostHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.CostHistory
	err := r.db.WithContext(ctx).
		Where("stock_item_id = ? AND owner_id = ?", stockItemID, ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
