package repository

import (
	"context"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseRepository is a read-only view of the purchasing subsystem's data.
// The sync engine never creates or mutates purchases; it only replays their
// completed line items during a full WAC recalculation.
type PurchaseRepository interface {
	FindByID(ctx context.Context, id, ownerID uuid.UUID) (*model.Purchase, error)
	ListCompleted(ctx context.Context, ownerID uuid.UUID) ([]model.Purchase, error)
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) FindByID(ctx context.Context, id, ownerID uuid.UUID) (*model.Purchase, error) {
	var p model.Purchase
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepo) ListCompleted(ctx context.Context, ownerID uuid.UUID) ([]model.Purchase, error) {
	var purchases []model.Purchase
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, "completed").
		Order("purchase_date ASC").
		Find(&purchases).Error
	return purchases, err
}
