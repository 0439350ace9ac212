package order

import (
	"context"
	"log"

	"github.com/dpang/order-server/internal/domain/order"
)

// UpdateStatusUseCase 订单状态推进用例
//
// 教学要点：
// 状态只能沿物流链路逐级前进（不跳步、不回退），取消另有专门入口。
// 目标状态等于当前状态时报"已处于该状态"，让调用方感知重复提交
type UpdateStatusUseCase struct {
	orderRepo order.Repository
	cache     Cache
	events    EventPublisher
}

// NewUpdateStatusUseCase 创建状态推进用例
func NewUpdateStatusUseCase(orderRepo order.Repository, cache Cache, events EventPublisher) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{orderRepo: orderRepo, cache: cache, events: events}
}

// OrderStatusChangedEvent 订单状态变更事件
type OrderStatusChangedEvent struct {
	OrderID       uint   `json:"order_id"`
	OrderDetailID uint   `json:"order_detail_id,omitempty"`
	Status        string `json:"status"`
}

// Execute 推进整单状态：订单与其全部明细一并翻转
//
// 整单推进会把目标状态写到每条未取消的明细上，所以校验必须逐明细做：
// 有明细被单独推进到目标之后时（明细比整单快），整单推进会把它拉回去，
// 这里直接拒绝整个请求。已取消的明细不跟随翻转，跳过校验
func (uc *UpdateStatusUseCase) Execute(ctx context.Context, orderID uint, target order.OrderStatus) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == target {
		return order.ErrAlreadyInRequestedStatus
	}
	if err := order.ValidateOrderStatusChange(o.Status, target); err != nil {
		return err
	}
	for i := range o.Details {
		d := &o.Details[i]
		if d.Status == order.StatusCancelled || d.Status == target {
			continue
		}
		if err := order.ValidateOrderStatusChange(d.Status, target); err != nil {
			return err
		}
	}
	if err := uc.orderRepo.UpdateStatus(ctx, orderID, target); err != nil {
		return err
	}
	uc.afterChange(ctx, orderID, 0, target)
	return nil
}

// ExecuteDetail 推进单条明细状态，规则与整单一致
func (uc *UpdateStatusUseCase) ExecuteDetail(ctx context.Context, orderID, detailID uint, target order.OrderStatus) error {
	o, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	detail := o.DetailByID(detailID)
	if detail == nil {
		return order.ErrOrderDetailNotFound
	}
	if detail.Status == target {
		return order.ErrAlreadyInRequestedStatus
	}
	if err := order.ValidateOrderStatusChange(detail.Status, target); err != nil {
		return err
	}
	if err := uc.orderRepo.UpdateDetailStatus(ctx, detailID, target); err != nil {
		return err
	}
	uc.afterChange(ctx, orderID, detailID, target)
	return nil
}

func (uc *UpdateStatusUseCase) afterChange(ctx context.Context, orderID, detailID uint, target order.OrderStatus) {
	if err := uc.cache.Delete(ctx, orderID); err != nil {
		log.Printf("失效订单缓存失败 order_id=%d: %v", orderID, err)
	}
	if err := uc.events.Publish(ctx, "order.status_changed", OrderStatusChangedEvent{
		OrderID:       orderID,
		OrderDetailID: detailID,
		Status:        target.String(),
	}); err != nil {
		log.Printf("发布状态变更事件失败 order_id=%d: %v", orderID, err)
	}
}
