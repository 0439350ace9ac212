// Package cancel 订单取消用例：发货前的逐明细取消与退款
package cancel

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/order"
)

// TxManager 事务管理接口（由基础设施层实现）
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// Cache 订单缓存失效接口
type Cache interface {
	Delete(ctx context.Context, orderID uint) error
}

// CancelOrderUseCase 取消订单明细用例
//
// 教学要点：
// 1. 取消窗口：仅PAYMENT_COMPLETED可取消。发货后（DELIVERY_START及以后）
//    走退货流程，支付前没有可退的钱
// 2. 明细行加行锁后再检查状态：两个并发取消请求中后到的会在锁上等待，
//    拿到锁时看到CANCELLED状态而失败（防双重退款）
// 3. 本地事务（翻状态+建取消记录）提交后才调远端（回补库存、退积分），
//    远端失败进补偿任务表由后台重试
type CancelOrderUseCase struct {
	orderRepo  order.Repository
	cancelRepo order.CancelRepository
	txManager  TxManager
	comp       *compensation.Executor
	events     EventPublisher
	cache      Cache
}

// NewCancelOrderUseCase 创建取消用例
func NewCancelOrderUseCase(
	orderRepo order.Repository,
	cancelRepo order.CancelRepository,
	txManager TxManager,
	comp *compensation.Executor,
	events EventPublisher,
	cache Cache,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		orderRepo:  orderRepo,
		cancelRepo: cancelRepo,
		txManager:  txManager,
		comp:       comp,
		events:     events,
		cache:      cache,
	}
}

// OrderCancelledEvent 取消完成事件
type OrderCancelledEvent struct {
	OrderID       uint  `json:"order_id"`
	OrderDetailID uint  `json:"order_detail_id"`
	RefundAmount  int64 `json:"refund_amount"`
}

// Execute 取消一条订单明细并退款
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID, detailID uint, reason order.Reason) (*order.Cancel, error) {
	var (
		ord    *order.Order
		detail *order.OrderDetail
		cancel *order.Cancel
	)

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		ord, err = uc.orderRepo.FindByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if ord.DetailByID(detailID) == nil {
			return order.ErrOrderDetailNotFound
		}

		detail, err = uc.orderRepo.LockDetailByID(txCtx, detailID)
		if err != nil {
			return err
		}
		if detail.Status != order.StatusPaymentCompleted {
			return order.ErrUnableToCancel
		}

		if err := uc.orderRepo.UpdateDetailStatus(txCtx, detailID, order.StatusCancelled); err != nil {
			return err
		}

		now := time.Now()
		cancel = &order.Cancel{
			Reason:       reason,
			RefundAmount: detail.LineAmount() + ord.DeliveryFee,
			RequestedAt:  now,
			CompletedAt:  &now,
		}
		detail.AssignCancel(cancel)
		return uc.cancelRepo.Create(txCtx, cancel)
	})
	if err != nil {
		return nil, err
	}

	// 远端补偿：回库存、退积分，两步各自幂等。
	// 前一步失败不短路后一步——每一步都必须被执行或入队，
	// 否则后台Worker只会重试先失败的那步，后面的钱就丢了
	restockErr := uc.comp.Execute(ctx, compensation.RestockTask(orderID, detailID, detail.ItemID, detail.Quantity))
	refundErr := uc.comp.Execute(ctx, compensation.RefundTask(orderID, detailID, ord.UserID, cancel.RefundAmount, "订单取消"))
	if err := errors.Join(restockErr, refundErr); err != nil {
		return nil, err
	}

	if err := uc.cache.Delete(ctx, orderID); err != nil {
		log.Printf("失效订单缓存失败 order_id=%d: %v", orderID, err)
	}
	if err := uc.events.Publish(ctx, "order.cancelled", OrderCancelledEvent{
		OrderID:       orderID,
		OrderDetailID: detailID,
		RefundAmount:  cancel.RefundAmount,
	}); err != nil {
		log.Printf("发布取消事件失败 order_id=%d: %v", orderID, err)
	}

	return cancel, nil
}
