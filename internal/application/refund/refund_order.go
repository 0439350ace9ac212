// Package refund 退货（退货退款）用例：收货后的退货申请与状态流转
package refund

import (
	"context"
	"log"
	"time"

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

// RefundOrderUseCase 退货申请用例
//
// 教学要点：
// 1. 退货窗口：仅DELIVERY_COMPLETED可申请（先收货，后退货）
// 2. 申请时只建记录、翻状态，不动库存和积分——货还没收回来；
//    库存回补与积分退还在状态推进到REFUND_COMPLETE时触发（见update_refund_status.go）
// 3. 回收地址在申请时点从订单收货人快照派生，之后收货人变更不影响已建回收单
// 4. 退货金额=明细小计，不含配送费（货物已送达，运费已消耗）
type RefundOrderUseCase struct {
	orderRepo  order.Repository
	refundRepo order.RefundRepository
	txManager  TxManager
	events     EventPublisher
	cache      Cache
}

// NewRefundOrderUseCase 创建退货申请用例
func NewRefundOrderUseCase(
	orderRepo order.Repository,
	refundRepo order.RefundRepository,
	txManager TxManager,
	events EventPublisher,
	cache Cache,
) *RefundOrderUseCase {
	return &RefundOrderUseCase{
		orderRepo:  orderRepo,
		refundRepo: refundRepo,
		txManager:  txManager,
		events:     events,
		cache:      cache,
	}
}

// RefundRequest 退货申请参数
type RefundRequest struct {
	OrderID          uint
	OrderDetailID    uint
	Reason           order.Reason
	Note             string
	RetrievalMessage string
}

// RefundRequestedEvent 退货申请事件
type RefundRequestedEvent struct {
	OrderID       uint  `json:"order_id"`
	OrderDetailID uint  `json:"order_detail_id"`
	RefundID      uint  `json:"refund_id"`
	RefundAmount  int64 `json:"refund_amount"`
}

// Execute 对一条已送达的明细发起退货
func (uc *RefundOrderUseCase) Execute(ctx context.Context, req *RefundRequest) (*order.Refund, error) {
	var refund *order.Refund

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		ord, err := uc.orderRepo.FindByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		if ord.DetailByID(req.OrderDetailID) == nil {
			return order.ErrOrderDetailNotFound
		}

		detail, err := uc.orderRepo.LockDetailByID(txCtx, req.OrderDetailID)
		if err != nil {
			return err
		}
		if detail.Status != order.StatusDeliveryCompleted {
			return order.ErrUnableToRefund
		}

		if err := uc.orderRepo.UpdateDetailStatus(txCtx, req.OrderDetailID, order.StatusCancelled); err != nil {
			return err
		}

		refund = &order.Refund{
			Reason:       req.Reason,
			Note:         req.Note,
			Status:       order.RefundStatusRequest,
			RefundAmount: detail.LineAmount(),
			RequestedAt:  time.Now(),
		}
		detail.AssignRefund(refund)
		refund.AssignRecall(&order.Recall{
			RetrieverName:        ord.Recipient.Name,
			RetrieverPhoneNumber: ord.Recipient.PhoneNumber,
			RetrieverAddress:     ord.Recipient.FullAddress(),
			RetrievalMessage:     req.RetrievalMessage,
		})
		return uc.refundRepo.Create(txCtx, refund)
	})
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Delete(ctx, req.OrderID); err != nil {
		log.Printf("失效订单缓存失败 order_id=%d: %v", req.OrderID, err)
	}
	if err := uc.events.Publish(ctx, "refund.requested", RefundRequestedEvent{
		OrderID:       req.OrderID,
		OrderDetailID: req.OrderDetailID,
		RefundID:      refund.ID,
		RefundAmount:  refund.RefundAmount,
	}); err != nil {
		log.Printf("发布退货申请事件失败 order_id=%d: %v", req.OrderID, err)
	}

	return refund, nil
}
