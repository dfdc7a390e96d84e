package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/pkg/cache"

	"go.uber.org/zap"
)

// retailerListIndex is the set of every cached listing key for one sales rep
func retailerListIndex(salesRepID uint) string {
	return fmt.Sprintf("retailers:sr:%d:keys", salesRepID)
}

// retailerListKey is deterministic for a normalized filter: fields marshal in declaration order
func retailerListKey(salesRepID uint, f RetailerFilter) string {
	raw, _ := json.Marshal(f)
	return fmt.Sprintf("retailers:sr:%d:%s", salesRepID, raw)
}

// listingCache stores per sales rep retailer pages and drops them as a group
type listingCache struct {
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func (l listingCache) store(ctx context.Context, salesRepID uint, key string, page *RetailerPage) error {
	if err := cache.SetJSON(ctx, l.cache, key, page, l.ttl); err != nil {
		return err
	}
	return l.cache.AddToIndex(ctx, retailerListIndex(salesRepID), key, l.ttl)
}

func (l listingCache) invalidate(ctx context.Context, salesRepIDs ...uint) error {
	for _, id := range salesRepIDs {
		if err := l.cache.InvalidateIndex(ctx, retailerListIndex(id)); err != nil {
			l.log.Error("Failed to invalidate retailer listing cache",
				zap.Uint("sales_rep_id", id),
				zap.Error(err))
			return apperror.Internal(err, "invalidate retailer listings for SR %d", id)
		}
	}
	return nil
}
