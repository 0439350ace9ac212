// Package external 定义三个协作服务（商品/积分/用户）的调用契约
//
// 教学要点：
// 1. 这些服务不属于本服务边界，这里只定义接口（端口），
//    HTTP适配器实现在infrastructure/client（六边形架构）
// 2. 三个契约都是同步请求/响应，远程失败以error原样上抛，
//    本服务不做静默降级
package external

import "context"

// ItemInfo 商品服务返回的商品信息
type ItemInfo struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`    // 单价（分）
	Quantity int    `json:"quantity"` // 可用库存
}

// StockAdjustment 一条库存调整指令
// Delta为正表示回补库存（取消/退货），为负表示扣减（下单）
type StockAdjustment struct {
	ItemID uint `json:"item_id"`
	Delta  int  `json:"delta"`
}

// ItemService 商品服务契约
type ItemService interface {
	// GetItem 查询单个商品
	GetItem(ctx context.Context, itemID uint) (*ItemInfo, error)

	// GetItems 批量查询商品（下单校验、列表富化都走批量，一次往返）
	GetItems(ctx context.Context, itemIDs []uint) ([]ItemInfo, error)

	// AdjustStock 批量调整库存
	// idempotencyKey由补偿机制生成，重试时复用同一key，
	// 商品服务按key去重，保证调整不会重复生效
	AdjustStock(ctx context.Context, adjustments []StockAdjustment, idempotencyKey string) error
}
