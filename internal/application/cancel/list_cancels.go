package cancel

import (
	"context"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// ListCancelsUseCase 取消记录列表查询用例
type ListCancelsUseCase struct {
	cancelRepo order.CancelRepository
	orderRepo  order.Repository
	lookup     *enrich.Lookup
}

// NewListCancelsUseCase 创建列表查询用例
func NewListCancelsUseCase(cancelRepo order.CancelRepository, orderRepo order.Repository, lookup *enrich.Lookup) *ListCancelsUseCase {
	return &ListCancelsUseCase{cancelRepo: cancelRepo, orderRepo: orderRepo, lookup: lookup}
}

// CancelListResult 分页结果，Details按明细ID索引
type CancelListResult struct {
	Cancels []*order.Cancel
	Total   int64
	Details map[uint]order.OrderDetail
	Items   map[uint]external.ItemInfo
	Users   map[uint]external.UserInfo
}

// Execute 按条件分页查询取消记录，批量补齐明细与商品/用户信息
func (uc *ListCancelsUseCase) Execute(ctx context.Context, q order.CancelQuery) (*CancelListResult, error) {
	cancels, total, err := uc.cancelRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	detailIDs := make([]uint, 0, len(cancels))
	for _, c := range cancels {
		detailIDs = append(detailIDs, c.OrderDetailID)
	}
	details, err := uc.orderRepo.FindDetailsByIDs(ctx, detailIDs)
	if err != nil {
		return nil, err
	}

	detailByID := make(map[uint]order.OrderDetail, len(details))
	itemIDs := make([]uint, 0, len(details))
	orderIDs := make(map[uint]struct{}, len(details))
	for _, d := range details {
		detailByID[d.ID] = d
		itemIDs = append(itemIDs, d.ItemID)
		orderIDs[d.OrderID] = struct{}{}
	}

	// 下单用户要经订单行拿到，逐单查出userID后再批量查用户服务
	userIDs := make([]uint, 0, len(orderIDs))
	for orderID := range orderIDs {
		o, err := uc.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		userIDs = append(userIDs, o.UserID)
	}

	items, users, err := uc.lookup.ItemAndUserInfos(ctx, itemIDs, userIDs)
	if err != nil {
		return nil, err
	}

	return &CancelListResult{
		Cancels: cancels,
		Total:   total,
		Details: detailByID,
		Items:   items,
		Users:   users,
	}, nil
}
