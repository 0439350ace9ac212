package refund

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/order"
)

// UpdateRefundStatusUseCase 退货状态推进用例
//
// 教学要点：
// 1. 退货状态同样逐级前进：REFUND_REQUEST → COLLECTING → REFUND_COMPLETE
// 2. 只有进入REFUND_COMPLETE才触发库存回补与积分退还——
//    货物收回并验收之前钱不退。COLLECTING只是内部进度标记，无任何副作用
// 3. 逐级规则 + 目标等于当前报错，保证补偿恰好触发一次：
//    REFUND_COMPLETE没有出边，进入后任何再次推进都会被拒绝
// 4. 推进在事务里对明细行加锁后再读退货状态：两个并发的
//    COLLECTING→REFUND_COMPLETE请求中后到的在锁上等待，
//    拿到锁时看到已完成的状态而失败（和取消/退货申请同一套串行化手段）
type UpdateRefundStatusUseCase struct {
	refundRepo order.RefundRepository
	orderRepo  order.Repository
	txManager  TxManager
	comp       *compensation.Executor
	events     EventPublisher
	cache      Cache
}

// NewUpdateRefundStatusUseCase 创建退货状态推进用例
func NewUpdateRefundStatusUseCase(
	refundRepo order.RefundRepository,
	orderRepo order.Repository,
	txManager TxManager,
	comp *compensation.Executor,
	events EventPublisher,
	cache Cache,
) *UpdateRefundStatusUseCase {
	return &UpdateRefundStatusUseCase{
		refundRepo: refundRepo,
		orderRepo:  orderRepo,
		txManager:  txManager,
		comp:       comp,
		events:     events,
		cache:      cache,
	}
}

// RefundCompletedEvent 退货完成事件
type RefundCompletedEvent struct {
	OrderID       uint  `json:"order_id"`
	OrderDetailID uint  `json:"order_detail_id"`
	RefundID      uint  `json:"refund_id"`
	RefundAmount  int64 `json:"refund_amount"`
}

// Execute 推进退货状态
func (uc *UpdateRefundStatusUseCase) Execute(ctx context.Context, refundID uint, target order.RefundStatus) error {
	var (
		refund *order.Refund
		detail *order.OrderDetail
	)

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		refund, err = uc.refundRepo.FindByID(txCtx, refundID)
		if err != nil {
			return err
		}

		// 锁住所属明细行，再重读退货状态：并发推进由此串行化
		detail, err = uc.orderRepo.LockDetailByID(txCtx, refund.OrderDetailID)
		if err != nil {
			return err
		}
		refund, err = uc.refundRepo.FindByID(txCtx, refundID)
		if err != nil {
			return err
		}

		if refund.Status == target {
			return order.ErrAlreadyInRequestedStatus
		}
		if err := order.ValidateRefundStatusChange(refund.Status, target); err != nil {
			return err
		}

		var completedAt *time.Time
		if target == order.RefundStatusComplete {
			now := time.Now()
			completedAt = &now
		}
		return uc.refundRepo.UpdateStatus(txCtx, refundID, target, completedAt)
	})
	if err != nil {
		return err
	}

	if target != order.RefundStatusComplete {
		return nil
	}

	// 完成时点才回补库存、退还积分
	ord, err := uc.orderRepo.FindByID(ctx, detail.OrderID)
	if err != nil {
		return err
	}

	// 两步补偿各自幂等，前一步失败不短路后一步——
	// 每一步都必须被执行或入队，否则积分退还永远不会被重试
	restockErr := uc.comp.Execute(ctx, compensation.RestockTask(ord.ID, detail.ID, detail.ItemID, detail.Quantity))
	refundErr := uc.comp.Execute(ctx, compensation.RefundTask(ord.ID, detail.ID, ord.UserID, refund.RefundAmount, "退货完成"))
	if err := errors.Join(restockErr, refundErr); err != nil {
		return err
	}

	if err := uc.cache.Delete(ctx, ord.ID); err != nil {
		log.Printf("失效订单缓存失败 order_id=%d: %v", ord.ID, err)
	}
	if err := uc.events.Publish(ctx, "refund.completed", RefundCompletedEvent{
		OrderID:       ord.ID,
		OrderDetailID: detail.ID,
		RefundID:      refundID,
		RefundAmount:  refund.RefundAmount,
	}); err != nil {
		log.Printf("发布退货完成事件失败 refund_id=%d: %v", refundID, err)
	}

	return nil
}
