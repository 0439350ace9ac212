package refund

import (
	"context"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// GetRefundUseCase 查询单条退货记录用例
type GetRefundUseCase struct {
	refundRepo order.RefundRepository
	orderRepo  order.Repository
	lookup     *enrich.Lookup
}

// NewGetRefundUseCase 创建退货查询用例
func NewGetRefundUseCase(refundRepo order.RefundRepository, orderRepo order.Repository, lookup *enrich.Lookup) *GetRefundUseCase {
	return &GetRefundUseCase{refundRepo: refundRepo, orderRepo: orderRepo, lookup: lookup}
}

// RefundView 退货记录 + 所属明细/订单 + 补齐的商品/用户信息
type RefundView struct {
	Refund *order.Refund
	Detail *order.OrderDetail
	Order  *order.Order
	Item   external.ItemInfo
	User   external.UserInfo
}

// Execute 查询退货记录，沿明细回溯到订单并补齐展示信息
func (uc *GetRefundUseCase) Execute(ctx context.Context, refundID uint) (*RefundView, error) {
	r, err := uc.refundRepo.FindByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	detail, err := uc.orderRepo.FindDetailByID(ctx, r.OrderDetailID)
	if err != nil {
		return nil, err
	}
	ord, err := uc.orderRepo.FindByID(ctx, detail.OrderID)
	if err != nil {
		return nil, err
	}

	items, users, err := uc.lookup.ItemAndUserInfos(ctx, []uint{detail.ItemID}, []uint{ord.UserID})
	if err != nil {
		return nil, err
	}

	return &RefundView{
		Refund: r,
		Detail: detail,
		Order:  ord,
		Item:   items[detail.ItemID],
		User:   users[ord.UserID],
	}, nil
}
