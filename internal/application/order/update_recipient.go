package order

import (
	"context"
	"log"

	"github.com/dpang/order-server/internal/domain/order"
)

// UpdateRecipientUseCase 修改收货人信息用例
type UpdateRecipientUseCase struct {
	orderRepo order.Repository
	cache     Cache
}

// NewUpdateRecipientUseCase 创建修改收货人用例
func NewUpdateRecipientUseCase(orderRepo order.Repository, cache Cache) *UpdateRecipientUseCase {
	return &UpdateRecipientUseCase{orderRepo: orderRepo, cache: cache}
}

// Execute 整体替换订单的收货人信息
func (uc *UpdateRecipientUseCase) Execute(ctx context.Context, orderID uint, in *RecipientInput) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	recipient := &order.OrderRecipient{
		OrderID:       o.ID,
		Name:          in.Name,
		PhoneNumber:   in.PhoneNumber,
		ZipCode:       in.ZipCode,
		Address:       in.Address,
		DetailAddress: in.DetailAddress,
	}
	if err := uc.orderRepo.UpdateRecipient(ctx, orderID, recipient); err != nil {
		return err
	}

	if err := uc.cache.Delete(ctx, orderID); err != nil {
		log.Printf("失效订单缓存失败 order_id=%d: %v", orderID, err)
	}
	return nil
}
