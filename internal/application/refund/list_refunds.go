package refund

import (
	"context"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// ListRefundsUseCase 退货记录列表查询用例
type ListRefundsUseCase struct {
	refundRepo order.RefundRepository
	orderRepo  order.Repository
	lookup     *enrich.Lookup
}

// NewListRefundsUseCase 创建列表查询用例
func NewListRefundsUseCase(refundRepo order.RefundRepository, orderRepo order.Repository, lookup *enrich.Lookup) *ListRefundsUseCase {
	return &ListRefundsUseCase{refundRepo: refundRepo, orderRepo: orderRepo, lookup: lookup}
}

// RefundListResult 分页结果，Details按明细ID索引
type RefundListResult struct {
	Refunds []*order.Refund
	Total   int64
	Details map[uint]order.OrderDetail
	Items   map[uint]external.ItemInfo
	Users   map[uint]external.UserInfo
}

// Execute 按条件分页查询退货记录，批量补齐明细与商品/用户信息
func (uc *ListRefundsUseCase) Execute(ctx context.Context, q order.RefundQuery) (*RefundListResult, error) {
	refunds, total, err := uc.refundRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	detailIDs := make([]uint, 0, len(refunds))
	for _, r := range refunds {
		detailIDs = append(detailIDs, r.OrderDetailID)
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

	return &RefundListResult{
		Refunds: refunds,
		Total:   total,
		Details: detailByID,
		Items:   items,
		Users:   users,
	}, nil
}
