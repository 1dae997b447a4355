package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/dto"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/model"
	"github.com/monifinebakery/BISMILLAH-sub013/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const stockCacheTTL = 60 * time.Second

// StockService serves the warehouse CRUD surface around the sync engine:
// listing, single-row reads (cache-assisted), manual edits, bulk deletion and
// the low-stock alert view. Mutations here also flow through the durable
// queue when the store is offline, so they take the same versioned path as
// purchase applications.
type StockService interface {
	List(ctx context.Context, ownerID uuid.UUID, filter dto.StockFilter) (*dto.StockListResponse, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*dto.StockItemResponse, error)
	UpdateItem(ctx context.Context, ownerID, id uuid.UUID, req dto.UpdateStockItemRequest) (*dto.StockItemResponse, error)
	BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []string) (int64, error)
	Alerts(ctx context.Context, ownerID uuid.UUID) ([]dto.StockItemResponse, error)
	History(ctx context.Context, ownerID, id uuid.UUID, limit int) ([]model.CostHistory, error)
}

type stockService struct {
	stock   repository.StockRepository
	history repository.CostHistoryRepository
	cache   *redis.Client // optional; nil disables caching
}

func NewStockService(stock repository.StockRepository, history repository.CostHistoryRepository, cache *redis.Client) StockService {
	return &stockService{stock: stock, history: history, cache: cache}
}

func (s *stockService) List(ctx context.Context, ownerID uuid.UUID, filter dto.StockFilter) (*dto.StockListResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	items, total, err := s.stock.List(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	resp := &dto.StockListResponse{
		Data:  make([]dto.StockItemResponse, 0, len(items)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range items {
		resp.Data = append(resp.Data, toStockResponse(&items[i]))
	}
	return resp, nil
}

// Get reads one row, serving from the cache when warm. A cache failure is
// logged and ignored: the cache is an optimization, never a dependency.
func (s *stockService) Get(ctx context.Context, ownerID, id uuid.UUID) (*dto.StockItemResponse, error) {
	key := stockCacheKey(ownerID, id)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached dto.StockItemResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			log.Debug().Err(err).Msg("stock: cache read failed")
		}
	}

	item, err := s.stock.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	resp := toStockResponse(item)

	if s.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, raw, stockCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("stock: cache write failed")
			}
		}
	}
	return &resp, nil
}

func (s *stockService) UpdateItem(ctx context.Context, ownerID, id uuid.UUID, req dto.UpdateStockItemRequest) (*dto.StockItemResponse, error) {
	item, err := s.stock.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	oldCost := item.AvgUnitCost
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.MinStock != nil && !req.MinStock.IsNegative() {
		item.MinStock = *req.MinStock
	}

	if err := s.stock.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID, id)

	if !item.AvgUnitCost.Equal(oldCost) {
		// Manual edits never touch cost today, but keep the audit guard in
		// case the editable field set grows.
		if herr := s.history.Create(ctx, &model.CostHistory{
			StockItemID: item.ID,
			OwnerID:     ownerID,
			StockBefore: item.Stock,
			StockAfter:  item.Stock,
			CostBefore:  oldCost,
			CostAfter:   item.AvgUnitCost,
			Reason:      ReasonManualAdjust,
		}); herr != nil {
			log.Error().Err(herr).Str("item", item.Name).Msg("stock: audit write failed")
		}
	}

	resp := toStockResponse(item)
	return &resp, nil
}

func (s *stockService) BulkDelete(ctx context.Context, ownerID uuid.UUID, rawIDs []string) (int64, error) {
	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.stock.BulkDelete(ctx, ownerID, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.invalidate(ctx, ownerID, id)
	}
	return deleted, nil
}

func (s *stockService) Alerts(ctx context.Context, ownerID uuid.UUID) ([]dto.StockItemResponse, error) {
	items, err := s.stock.ListBelowMinimum(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toStockResponse(&items[i]))
	}
	return out, nil
}

func (s *stockService) History(ctx context.Context, ownerID, id uuid.UUID, limit int) ([]model.CostHistory, error) {
	return s.history.ListByStockItem(ctx, id, ownerID, limit)
}

func (s *stockService) invalidate(ctx context.Context, ownerID, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, stockCacheKey(ownerID, id)).Err(); err != nil {
		log.Debug().Err(err).Msg("stock: cache invalidation failed")
	}
}

func stockCacheKey(ownerID, id uuid.UUID) string {
	return fmt.Sprintf("stock:%s:%s", ownerID, id)
}

func toStockResponse(item *model.StockItem) dto.StockItemResponse {
	return dto.StockItemResponse{
		ID:            item.ID.String(),
		Name:          item.Name,
		Category:      item.Category,
		Unit:          item.Unit,
		Stock:         item.Stock,
		AvgUnitCost:   item.AvgUnitCost,
		LastUnitPrice: item.LastUnitPrice,
		MinStock:      item.MinStock,
		Suppliers:     item.Suppliers,
		Version:       item.Version,
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
