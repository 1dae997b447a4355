package repository

import (
	"context"
	"errors"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleStockItem is returned by Update when the row exists but its version
// no longer matches — another writer got there first. Callers must refetch
// and recompute instead of overwriting.
var ErrStaleStockItem = errors.New("stock item was modified concurrently")

// StockRepository defines the data access contract for warehouse rows.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
//
// Every method is scoped by owner id — a row is never visible or writable
// outside its tenant.
type StockRepository interface {
	Create(ctx context.Context, item *model.StockItem) error
	FindByID(ctx context.Context, id, ownerID uuid.UUID) (*model.StockItem, error)
	// FindByNameAndUnit matches case-insensitively on name (contains) and
	// exactly on unit, ordered by creation time so ambiguous results are
	// deterministic. Callers prefer the exact normalized name among the hits.
	FindByNameAndUnit(ctx context.Context, name, unit string, ownerID uuid.UUID) ([]model.StockItem, error)
	// Update persists the full row guarded by its version; see ErrStaleStockItem.
	Update(ctx context.Context, item *model.StockItem) error
	List(ctx context.Context, ownerID uuid.UUID, filter dto.StockFilter) ([]model.StockItem, int64, error)
	ListBelowMinimum(ctx context.Context, ownerID uuid.UUID) ([]model.StockItem, error)
	BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) Create(ctx context.Context, item *model.StockItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *stockRepo) FindByID(ctx context.Context, id, ownerID uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepo) FindByNameAndUnit(ctx context.Context, name, unit string, ownerID uuid.UUID) ([]model.StockItem, error) {
	var items []model.StockItem
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND name ILIKE ? AND unit = ?", ownerID, "%"+name+"%", unit).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// Update writes the whole row in one statement so a partial apply is
// impossible. The WHERE clause carries id, owner and the version the caller
// read; zero rows affected means either the row is gone or it moved on.
func (r *stockRepo) Update(ctx context.Context, item *model.StockItem) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("id = ? AND owner_id = ? AND version = ?", item.ID, item.OwnerID, item.Version).
		Updates(map[string]interface{}{
			"name":            item.Name,
			"category":        item.Category,
			"unit":            item.Unit,
			"stock":           item.Stock,
			"avg_unit_cost":   item.AvgUnitCost,
			"last_unit_price": item.LastUnitPrice,
			"min_stock":       item.MinStock,
			"suppliers":       item.Suppliers,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.StockItem{}).
			Where("id = ? AND owner_id = ?", item.ID, item.OwnerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStaleStockItem
	}
	item.Version++
	return nil
}

func (r *stockRepo) List(ctx context.Context, ownerID uuid.UUID, filter dto.StockFilter) ([]model.StockItem, int64, error) {
	var items []model.StockItem
	var total int64

	q := r.db.WithContext(ctx).Model(&model.StockItem{}).Where("owner_id = ?", ownerID)

	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Unit != "" {
		q = q.Where("unit = ?", filter.Unit)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("name ASC").Limit(filter.Limit).Offset(offset).Find(&items).Error
	return items, total, err
}

func (r *stockRepo) ListBelowMinimum(ctx context.Context, ownerID uuid.UUID) ([]model.StockItem, error) {
	var items []model.StockItem
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND min_stock > 0 AND stock <= min_stock", ownerID).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *stockRepo) BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Delete(&model.StockItem{})
	return res.RowsAffected, res.Error
}

func (r *stockRepo) DB() *gorm.DB { return r.db }
