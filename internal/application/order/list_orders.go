package order

import (
	"context"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// ListOrdersUseCase 订单列表查询用例（管理端全量 + 用户侧按人过滤共用）
type ListOrdersUseCase struct {
	orderRepo order.Repository
	lookup    *enrich.Lookup
}

// NewListOrdersUseCase 创建列表查询用例
func NewListOrdersUseCase(orderRepo order.Repository, lookup *enrich.Lookup) *ListOrdersUseCase {
	return &ListOrdersUseCase{orderRepo: orderRepo, lookup: lookup}
}

// OrderListResult 分页结果 + 批量补齐的商品/用户信息
type OrderListResult struct {
	Orders []*order.Order
	Total  int64
	Items  map[uint]external.ItemInfo
	Users  map[uint]external.UserInfo
}

// Execute 按条件分页查询订单
//
// 教学要点：
// 先取出整页订单，再把整页涉及的商品ID和用户ID各合并成一次批量查询。
// N 条订单只产生两次远端往返，而不是 2N 次
func (uc *ListOrdersUseCase) Execute(ctx context.Context, q order.OrderQuery) (*OrderListResult, error) {
	orders, total, err := uc.orderRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	var itemIDs, userIDs []uint
	for _, o := range orders {
		userIDs = append(userIDs, o.UserID)
		for _, d := range o.Details {
			itemIDs = append(itemIDs, d.ItemID)
		}
	}
	items, users, err := uc.lookup.ItemAndUserInfos(ctx, itemIDs, userIDs)
	if err != nil {
		return nil, err
	}

	return &OrderListResult{Orders: orders, Total: total, Items: items, Users: users}, nil
}
