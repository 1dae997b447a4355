package service_test

import (
	"context"
	"sort"
	"strings"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory StockRepository stub ───────────────────────────────────────────

type stubStockRepo struct {
	items map[uuid.UUID]*model.StockItem
	// updateErrs are popped one per Update call before the real logic runs,
	// for injecting stale conflicts and store failures.
	updateErrs []error
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{items: make(map[uuid.UUID]*model.StockItem)}
}

func (r *stubStockRepo) Create(_ context.Context, item *model.StockItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Version == 0 {
		item.Version = 1
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *stubStockRepo) FindByID(_ context.Context, id, ownerID uuid.UUID) (*model.StockItem, error) {
	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *stubStockRepo) FindByNameAndUnit(_ context.Context, name, unit string, ownerID uuid.UUID) ([]model.StockItem, error) {
	var out []model.StockItem
	for _, item := range r.items {
		if item.OwnerID != ownerID || item.Unit != unit {
			continue
		}
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(strings.TrimSpace(name))) {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubStockRepo) Update(_ context.Context, item *model.StockItem) error {
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	stored, ok := r.items[item.ID]
	if !ok || stored.OwnerID != item.OwnerID {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != item.Version {
		return repository.ErrStaleStockItem
	}
	cp := *item
	cp.Version++
	r.items[item.ID] = &cp
	item.Version = cp.Version
	return nil
}

func (r *stubStockRepo) List(_ context.Context, ownerID uuid.UUID, _ dto.StockFilter) ([]model.StockItem, int64, error) {
	var out []model.StockItem
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubStockRepo) ListBelowMinimum(_ context.Context, ownerID uuid.UUID) ([]model.StockItem, error) {
	var out []model.StockItem
	for _, item := range r.items {
		if item.OwnerID == ownerID && item.MinStock.IsPositive() && item.Stock.LessThanOrEqual(item.MinStock) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubStockRepo) BulkDelete(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.OwnerID == ownerID {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

// ── CostHistoryRepository stub ───────────────────────────────────────────────

type stubHistoryRepo struct {
	rows []model.CostHistory
}

func (r *stubHistoryRepo) Create(_ context.Context, h *model.CostHistory) error {
	r.rows = append(r.rows, *h)
	return nil
}

func (r *stubHistoryRepo) ListByStockItem(_ context.Context, stockItemID, ownerID uuid.UUID, _ int) ([]model.CostHistory, error) {
	var out []model.CostHistory
	for _, row := range r.rows {
		if row.StockItemID == stockItemID && row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

// ── PurchaseRepository stub ──────────────────────────────────────────────────

type stubPurchaseRepo struct {
	purchases []model.Purchase
}

func (r *stubPurchaseRepo) FindByID(_ context.Context, id, ownerID uuid.UUID) (*model.Purchase, error) {
	for i := range r.purchases {
		if r.purchases[i].ID == id && r.purchases[i].OwnerID == ownerID {
			return &r.purchases[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPurchaseRepo) ListCompleted(_ context.Context, ownerID uuid.UUID) ([]model.Purchase, error) {
	var out []model.Purchase
	for _, p := range r.purchases {
		if p.OwnerID == ownerID && p.Status == "completed" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.Before(out[j].PurchaseDate) })
	return out, nil
}
