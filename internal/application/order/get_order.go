package order

import (
	"context"
	"log"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// GetOrderUseCase 查询单个订单用例
//
// 设计说明：
// 读路径走 cache-aside：先查缓存，未命中回源数据库并回填。
// 缓存故障按未命中处理，读路径永远不因缓存不可用而失败
type GetOrderUseCase struct {
	orderRepo order.Repository
	lookup    *enrich.Lookup
	cache     Cache
}

// NewGetOrderUseCase 创建查询订单用例
func NewGetOrderUseCase(orderRepo order.Repository, lookup *enrich.Lookup, cache Cache) *GetOrderUseCase {
	return &GetOrderUseCase{orderRepo: orderRepo, lookup: lookup, cache: cache}
}

// OrderView 订单聚合 + 补齐的商品/用户信息
type OrderView struct {
	Order *order.Order
	Items map[uint]external.ItemInfo
	Users map[uint]external.UserInfo
}

// Execute 查询订单，补齐商品与下单用户信息
func (uc *GetOrderUseCase) Execute(ctx context.Context, orderID uint) (*OrderView, error) {
	o, err := uc.cache.Get(ctx, orderID)
	if err != nil {
		log.Printf("读取订单缓存失败 order_id=%d: %v", orderID, err)
		o = nil
	}
	if o == nil {
		o, err = uc.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.Set(ctx, o); err != nil {
			log.Printf("回填订单缓存失败 order_id=%d: %v", orderID, err)
		}
	}

	itemIDs := make([]uint, 0, len(o.Details))
	for _, d := range o.Details {
		itemIDs = append(itemIDs, d.ItemID)
	}
	items, users, err := uc.lookup.ItemAndUserInfos(ctx, itemIDs, []uint{o.UserID})
	if err != nil {
		return nil, err
	}

	return &OrderView{Order: o, Items: items, Users: users}, nil
}

// FetchDetail 查询订单明细，校验明细属于该订单
func (uc *GetOrderUseCase) FetchDetail(ctx context.Context, orderID, detailID uint) (*order.OrderDetail, error) {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	detail := o.DetailByID(detailID)
	if detail == nil {
		return nil, order.ErrOrderDetailNotFound
	}
	return detail, nil
}
