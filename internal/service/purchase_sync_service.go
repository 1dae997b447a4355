package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/netmon"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Audit row reasons.
const (
	ReasonPurchaseApply   = "purchase_apply"
	ReasonPurchaseReverse = "purchase_reverse"
	ReasonRecalculate     = "recalculate"
	ReasonManualAdjust    = "manual_adjust"
)

// recalcThreshold: a full recalculation only rewrites a row when the cost
// drifts by more than this, so repeated runs converge instead of churning.
var recalcThreshold = decimal.NewFromFloat(0.01)

// PurchaseSyncService keeps warehouse stock levels and weighted-average costs
// consistent with completed purchases. Items are processed sequentially and
// independently: one bad line is reported, never propagated to its siblings.
type PurchaseSyncService interface {
	ApplyPurchase(ctx context.Context, ownerID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.ApplySummary, error)
	// ApplyPurchaseByID loads a completed purchase from the purchasing
	// subsystem's table and applies it.
	ApplyPurchaseByID(ctx context.Context, ownerID, purchaseID uuid.UUID) (*dto.ApplySummary, error)
	ReversePurchase(ctx context.Context, ownerID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.ApplySummary, error)
	RecalculateAllWAC(ctx context.Context, ownerID uuid.UUID) (*dto.SyncSummary, error)
}

// ErrPurchaseNotCompleted rejects applying a purchase that is still pending
// or already cancelled.
var ErrPurchaseNotCompleted = errors.New("purchase is not completed")

type purchaseSyncService struct {
	stock     repository.StockRepository
	history   repository.CostHistoryRepository
	purchases repository.PurchaseRepository
	resolver  *MaterialResolver
}

func NewPurchaseSyncService(
	stock repository.StockRepository,
	history repository.CostHistoryRepository,
	purchases repository.PurchaseRepository,
) PurchaseSyncService {
	return &purchaseSyncService{
		stock:     stock,
		history:   history,
		purchases: purchases,
		resolver:  NewMaterialResolver(stock),
	}
}

// ApplyPurchase folds every line item of a completed purchase into the
// warehouse: stock up, WAC recomputed, supplier attribution merged. Returns
// the per-item breakdown; the error return is reserved for failures before
// any item was attempted.
func (s *purchaseSyncService) ApplyPurchase(ctx context.Context, ownerID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.ApplySummary, error) {
	summary := &dto.ApplySummary{PurchaseID: req.PurchaseID}
	refID := parseReferenceID(req.PurchaseID)

	for _, line := range req.Items {
		out := s.applyItem(ctx, ownerID, req.Supplier, refID, line)
		collect(summary, out)
	}

	log.Info().
		Str("purchase_id", req.PurchaseID).
		Int("applied", summary.AppliedCount).
		Int("skipped", len(summary.Skipped)).
		Int("failed", len(summary.Failed)).
		Msg("sync: purchase applied")
	return summary, nil
}

func (s *purchaseSyncService) applyItem(ctx context.Context, ownerID uuid.UUID, supplier string, refID *uuid.UUID, line dto.PurchaseItemPayload) dto.ItemOutcome {
	out := dto.ItemOutcome{ItemID: line.ItemID, Name: line.Name, MatchType: string(MatchNone)}

	if !line.Quantity.IsPositive() {
		out.Status = "skipped"
		out.Message = "Jumlah tidak valid, item dilewati."
		return out
	}
	if strings.TrimSpace(line.Name) == "" {
		out.Status = "skipped"
		out.Message = "Nama item kosong, item dilewati."
		return out
	}

	price := DeriveUnitPrice(line.UnitPrice, line.Subtotal, line.Quantity)

	item, kind, err := s.resolver.Resolve(ctx, line.ItemID, line.Name, line.Unit, ownerID)
	if err != nil {
		return failed(out, err)
	}

	if item == nil {
		return s.createItem(ctx, ownerID, supplier, refID, line, price, out)
	}

	out.MatchType = string(kind)
	out.OldStock = item.Stock
	out.OldCost = item.AvgUnitCost

	mutate := func(it *model.StockItem) {
		res := ComputeWACDetailed(it.AvgUnitCost, it.Stock, line.Quantity, price)
		it.Stock = clampNonNegative(res.NewStock)
		it.AvgUnitCost = res.NewCost
		if price.IsPositive() {
			it.LastUnitPrice = price
		}
		if merged, changed := MergeSuppliers(it.Suppliers, supplier); changed {
			it.Suppliers = merged
		}
	}

	updated, err := s.updateWithRetry(ctx, ownerID, item, mutate)
	if err != nil {
		return failed(out, err)
	}

	out.Status = "applied"
	out.NewStock = updated.Stock
	out.NewCost = updated.AvgUnitCost
	s.recordHistory(ctx, updated, ownerID, supplier, out, line.Quantity, price, ReasonPurchaseApply, refID)
	return out
}

// createItem registers a material seen for the first time: initial stock is
// the purchased quantity and the WAC is simply its unit price.
func (s *purchaseSyncService) createItem(ctx context.Context, ownerID uuid.UUID, supplier string, refID *uuid.UUID, line dto.PurchaseItemPayload, price decimal.Decimal, out dto.ItemOutcome) dto.ItemOutcome {
	item := &model.StockItem{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(line.Name),
		Unit:          line.Unit,
		Stock:         line.Quantity,
		AvgUnitCost:   price,
		LastUnitPrice: price,
		Suppliers:     strings.TrimSpace(supplier),
		Version:       1,
	}
	if id, err := uuid.Parse(line.ItemID); err == nil && id != uuid.Nil {
		item.ID = id
	} else {
		item.ID = uuid.New()
	}

	if err := s.stock.Create(ctx, item); err != nil {
		// A replayed operation can race its own earlier attempt; fold into
		// the row that won instead of failing the line.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, kind, rerr := s.resolver.Resolve(ctx, line.ItemID, line.Name, line.Unit, ownerID)
			if rerr == nil && existing != nil {
				out.MatchType = string(kind)
				out.OldStock = existing.Stock
				out.OldCost = existing.AvgUnitCost
				updated, uerr := s.updateWithRetry(ctx, ownerID, existing, func(it *model.StockItem) {
					res := ComputeWACDetailed(it.AvgUnitCost, it.Stock, line.Quantity, price)
					it.Stock = clampNonNegative(res.NewStock)
					it.AvgUnitCost = res.NewCost
					if price.IsPositive() {
						it.LastUnitPrice = price
					}
					if merged, changed := MergeSuppliers(it.Suppliers, supplier); changed {
						it.Suppliers = merged
					}
				})
				if uerr != nil {
					return failed(out, uerr)
				}
				out.Status = "applied"
				out.NewStock = updated.Stock
				out.NewCost = updated.AvgUnitCost
				s.recordHistory(ctx, updated, ownerID, supplier, out, line.Quantity, price, ReasonPurchaseApply, refID)
				return out
			}
		}
		return failed(out, err)
	}

	out.Status = "applied"
	out.MatchType = "created"
	out.NewStock = item.Stock
	out.NewCost = item.AvgUnitCost
	s.recordHistory(ctx, item, ownerID, supplier, out, line.Quantity, price, ReasonPurchaseApply, refID)
	return out
}

func (s *purchaseSyncService) ApplyPurchaseByID(ctx context.Context, ownerID, purchaseID uuid.UUID) (*dto.ApplySummary, error) {
	p, err := s.purchases.FindByID(ctx, purchaseID, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status != "completed" {
		return nil, ErrPurchaseNotCompleted
	}

	req := dto.ApplyPurchaseRequest{
		PurchaseID: p.ID.String(),
		Supplier:   p.Supplier,
		Items:      make([]dto.PurchaseItemPayload, 0, len(p.Items)),
	}
	for _, line := range p.Items {
		req.Items = append(req.Items, dto.PurchaseItemPayload{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Unit:      line.Unit,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return s.ApplyPurchase(ctx, ownerID, req)
}

// ReversePurchase undoes a previously applied purchase, typically when a
// completed purchase is cancelled. Stock goes down (clamped at zero) and the
// WAC is recomputed with the negated quantity; when stock reaches zero the
// last known cost is preserved. Supplier attribution is intentionally left
// alone: provenance records where stock came from, not whether it stayed.
func (s *purchaseSyncService) ReversePurchase(ctx context.Context, ownerID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.ApplySummary, error) {
	summary := &dto.ApplySummary{PurchaseID: req.PurchaseID}
	refID := parseReferenceID(req.PurchaseID)

	for _, line := range req.Items {
		out := dto.ItemOutcome{ItemID: line.ItemID, Name: line.Name, MatchType: string(MatchNone)}

		if !line.Quantity.IsPositive() {
			out.Status = "skipped"
			out.Message = "Jumlah tidak valid, item dilewati."
			collect(summary, out)
			continue
		}

		item, kind, err := s.resolver.Resolve(ctx, line.ItemID, line.Name, line.Unit, ownerID)
		if err != nil {
			collect(summary, failed(out, err))
			continue
		}
		if item == nil {
			out.Status = "skipped"
			out.Message = "Item tidak ditemukan di gudang, tidak ada yang dibatalkan."
			collect(summary, out)
			continue
		}

		out.MatchType = string(kind)
		out.OldStock = item.Stock
		out.OldCost = item.AvgUnitCost

		price := DeriveUnitPrice(line.UnitPrice, line.Subtotal, line.Quantity)
		updated, err := s.updateWithRetry(ctx, ownerID, item, func(it *model.StockItem) {
			res := ComputeWACDetailed(it.AvgUnitCost, it.Stock, line.Quantity.Neg(), price)
			it.Stock = clampNonNegative(res.NewStock)
			it.AvgUnitCost = res.NewCost
		})
		if err != nil {
			collect(summary, failed(out, err))
			continue
		}

		out.Status = "applied"
		out.NewStock = updated.Stock
		out.NewCost = updated.AvgUnitCost
		s.recordHistory(ctx, updated, ownerID, req.Supplier, out, line.Quantity.Neg(), price, ReasonPurchaseReverse, refID)
		collect(summary, out)
	}

	log.Info().
		Str("purchase_id", req.PurchaseID).
		Int("reversed", summary.AppliedCount).
		Int("skipped", len(summary.Skipped)).
		Int("failed", len(summary.Failed)).
		Msg("sync: purchase reversed")
	return summary, nil
}

// RecalculateAllWAC rebuilds every stock item's weighted-average cost from
// the owner's completed purchase history and corrects rows that drifted by
// more than the threshold. Used to repair state after partial syncs.
func (s *purchaseSyncService) RecalculateAllWAC(ctx context.Context, ownerID uuid.UUID) (*dto.SyncSummary, error) {
	start := time.Now()

	items, _, err := s.stock.List(ctx, ownerID, dto.StockFilter{Page: 1, Limit: 10000})
	if err != nil {
		return nil, err
	}
	purchases, err := s.purchases.ListCompleted(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	summary := &dto.SyncSummary{TotalItems: len(items)}

	for i := range items {
		item := &items[i]
		res := dto.SyncResult{ItemID: item.ID.String(), ItemName: item.Name, OldCost: item.AvgUnitCost}

		totalQty, totalValue := purchaseTotalsFor(item, purchases)
		if !totalQty.IsPositive() {
			res.NewCost = item.AvgUnitCost
			res.Status = "skipped"
			res.Message = "Tidak ada riwayat pembelian."
			summary.Skipped++
			summary.Results = append(summary.Results, res)
			continue
		}

		newWAC := totalValue.Div(totalQty)
		res.NewCost = newWAC

		if newWAC.Sub(item.AvgUnitCost).Abs().LessThanOrEqual(recalcThreshold) {
			res.Status = "skipped"
			res.Message = "Sudah akurat."
			summary.Skipped++
			summary.Results = append(summary.Results, res)
			continue
		}

		updated, err := s.updateWithRetry(ctx, ownerID, item, func(it *model.StockItem) {
			it.AvgUnitCost = newWAC
		})
		if err != nil {
			res.Status = "error"
			res.Message = netmon.Classify(err).UserMessage
			summary.Failed++
			summary.Results = append(summary.Results, res)
			log.Error().Err(err).Str("item", item.Name).Msg("sync: recalculation update failed")
			continue
		}

		if herr := s.history.Create(ctx, &model.CostHistory{
			StockItemID: updated.ID,
			OwnerID:     ownerID,
			StockBefore: updated.Stock,
			StockAfter:  updated.Stock,
			CostBefore:  res.OldCost,
			CostAfter:   newWAC,
			Reason:      ReasonRecalculate,
		}); herr != nil {
			log.Error().Err(herr).Str("item", item.Name).Msg("sync: audit write failed")
		}

		res.Status = "success"
		summary.Successful++
		summary.Results = append(summary.Results, res)
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	log.Info().
		Int("total", summary.TotalItems).
		Int("updated", summary.Successful).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int64("duration_ms", summary.DurationMs).
		Msg("sync: full recalculation done")
	return summary, nil
}

// updateWithRetry persists a mutation under the optimistic version guard.
// On a stale-version conflict it refetches the current row, re-applies the
// mutation on fresh state and tries exactly once more; a second conflict is
// surfaced to the caller.
func (s *purchaseSyncService) updateWithRetry(ctx context.Context, ownerID uuid.UUID, item *model.StockItem, mutate func(*model.StockItem)) (*model.StockItem, error) {
	work := *item
	mutate(&work)

	err := s.stock.Update(ctx, &work)
	if err == nil {
		return &work, nil
	}
	if !errors.Is(err, repository.ErrStaleStockItem) {
		return nil, err
	}

	fresh, ferr := s.stock.FindByID(ctx, item.ID, ownerID)
	if ferr != nil {
		return nil, ferr
	}
	retry := *fresh
	mutate(&retry)
	if err := s.stock.Update(ctx, &retry); err != nil {
		return nil, err
	}
	log.Debug().Str("item", item.Name).Msg("sync: stale update retried on fresh state")
	return &retry, nil
}

// recordHistory writes the audit row. Best effort: a failed audit write is
// logged but never turns an applied mutation into a failed one.
func (s *purchaseSyncService) recordHistory(ctx context.Context, item *model.StockItem, ownerID uuid.UUID, supplier string, out dto.ItemOutcome, qty, price decimal.Decimal, reason string, refID *uuid.UUID) {
	err := s.history.Create(ctx, &model.CostHistory{
		StockItemID: item.ID,
		OwnerID:     ownerID,
		Supplier:    strings.TrimSpace(supplier),
		StockBefore: out.OldStock,
		StockAfter:  item.Stock,
		CostBefore:  out.OldCost,
		CostAfter:   item.AvgUnitCost,
		Quantity:    qty,
		UnitPrice:   price,
		Reason:      reason,
		ReferenceID: refID,
	})
	if err != nil {
		log.Error().Err(err).Str("item", item.Name).Msg("sync: audit write failed")
	}
}

// purchaseTotalsFor sums quantity and value across every completed purchase
// line that resolves to the given stock item, by id first and normalized
// name+unit otherwise.
func purchaseTotalsFor(item *model.StockItem, purchases []model.Purchase) (decimal.Decimal, decimal.Decimal) {
	normalized := strings.ToLower(strings.TrimSpace(item.Name))
	totalQty := decimal.Zero
	totalValue := decimal.Zero

	for _, p := range purchases {
		for _, line := range p.Items {
			if !matchesItem(item, normalized, line) || !line.Quantity.IsPositive() {
				continue
			}
			price := DeriveUnitPrice(line.UnitPrice, line.Subtotal, line.Quantity)
			if !price.IsPositive() {
				continue
			}
			totalQty = totalQty.Add(line.Quantity)
			totalValue = totalValue.Add(line.Quantity.Mul(price))
		}
	}
	return totalQty, totalValue
}

func matchesItem(item *model.StockItem, normalizedName string, line model.PurchaseItem) bool {
	if line.ItemID == item.ID.String() {
		return true
	}
	return strings.ToLower(strings.TrimSpace(line.Name)) == normalizedName && line.Unit == item.Unit
}

func parseReferenceID(s string) *uuid.UUID {
	if id, err := uuid.Parse(s); err == nil && id != uuid.Nil {
		return &id
	}
	return nil
}

func failed(out dto.ItemOutcome, err error) dto.ItemOutcome {
	c := netmon.Classify(err)
	out.Status = "failed"
	out.Message = c.UserMessage
	out.Retryable = c.Retryable
	log.Error().Err(err).Str("item", out.Name).Msg("sync: line item failed")
	return out
}

func collect(summary *dto.ApplySummary, out dto.ItemOutcome) {
	switch out.Status {
	case "applied":
		summary.AppliedCount++
		summary.Applied = append(summary.Applied, out)
	case "skipped":
		summary.Skipped = append(summary.Skipped, out)
	default:
		summary.Failed = append(summary.Failed, out)
	}
}
