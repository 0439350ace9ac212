package cancel

import (
	"context"

	"github.com/dpang/order-server/internal/application/enrich"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// GetCancelUseCase 查询单条取消记录用例
type GetCancelUseCase struct {
	cancelRepo order.CancelRepository
	orderRepo  order.Repository
	lookup     *enrich.Lookup
}

// NewGetCancelUseCase 创建取消查询用例
func NewGetCancelUseCase(cancelRepo order.CancelRepository, orderRepo order.Repository, lookup *enrich.Lookup) *GetCancelUseCase {
	return &GetCancelUseCase{cancelRepo: cancelRepo, orderRepo: orderRepo, lookup: lookup}
}

// CancelView 取消记录 + 所属明细/订单 + 补齐的商品/用户信息
type CancelView struct {
	Cancel *order.Cancel
	Detail *order.OrderDetail
	Order  *order.Order
	Item   external.ItemInfo
	User   external.UserInfo
}

// Execute 查询取消记录，沿明细回溯到订单并补齐展示信息
func (uc *GetCancelUseCase) Execute(ctx context.Context, cancelID uint) (*CancelView, error) {
	c, err := uc.cancelRepo.FindByID(ctx, cancelID)
	if err != nil {
		return nil, err
	}
	detail, err := uc.orderRepo.FindDetailByID(ctx, c.OrderDetailID)
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

	return &CancelView{
		Cancel: c,
		Detail: detail,
		Order:  ord,
		Item:   items[detail.ItemID],
		User:   users[ord.UserID],
	}, nil
}
