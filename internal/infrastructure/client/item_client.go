package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// itemClient 商品服务HTTP适配器
//
// 接口约定（商品服务侧）：
//
//	GET  /api/v1/items/{id}          → ItemInfo
//	GET  /api/v1/items?ids=1,2,3     → []ItemInfo
//	POST /api/v1/items/stock         → 批量调整库存（携带幂等键头）
type itemClient struct {
	*baseClient
}

// NewItemClient 创建商品服务客户端
func NewItemClient(baseURL string, timeout time.Duration) external.ItemService {
	return &itemClient{newBaseClient("item-service", baseURL, timeout)}
}

// GetItem 查询单个商品
func (c *itemClient) GetItem(ctx context.Context, itemID uint) (*external.ItemInfo, error) {
	var info external.ItemInfo
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", itemID), nil, nil, &info)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, order.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return &info, nil
}

// GetItems 批量查询商品
// 下游对不存在的ID直接跳过，调用方按返回集合判断缺失
func (c *itemClient) GetItems(ctx context.Context, itemIDs []uint) ([]external.ItemInfo, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}

	var infos []external.ItemInfo
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/items?ids="+strings.Join(ids, ","), nil, nil, &infos)
	if err != nil {
		return nil, apperrors.Wrap(err, "批量查询商品失败")
	}
	return infos, nil
}

// AdjustStock 批量调整库存
// 幂等键放请求头：商品服务按键去重，重试不会二次扣减
func (c *itemClient) AdjustStock(ctx context.Context, adjustments []external.StockAdjustment, idempotencyKey string) error {
	payload := struct {
		Adjustments []external.StockAdjustment `json:"adjustments"`
	}{Adjustments: adjustments}

	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/items/stock", headers, payload, nil)
	if err != nil {
		switch statusOf(err) {
		case http.StatusNotFound:
			return order.ErrProductNotFound
		case http.StatusConflict:
			return order.ErrInsufficientStock
		}
		return apperrors.Wrap(err, "调整库存失败")
	}
	return nil
}
