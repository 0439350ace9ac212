package compensation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/pkg/metrics"
)

// Executor 执行补偿调用，失败时落入outbox等待重试
//
// 教学要点：
// 1. 编排器不直接调远程服务做补偿，统一经过Executor，
//    保证每次调用都带幂等键、每次失败都被记录
// 2. Execute的错误会原样上抛给请求边界（错误策略：检测点抛出、不静默降级），
//    但任务已入队，后台Worker会继续重试
type Executor struct {
	items   external.ItemService
	mileage external.MileageService
	store   Store
}

// NewExecutor 创建补偿执行器
func NewExecutor(items external.ItemService, mileage external.MileageService, store Store) *Executor {
	return &Executor{
		items:   items,
		mileage: mileage,
		store:   store,
	}
}

// RestockTask 构造回补库存任务
func RestockTask(orderID, orderDetailID, itemID uint, quantity int) *Task {
	return &Task{
		Kind:           KindRestock,
		OrderID:        orderID,
		OrderDetailID:  orderDetailID,
		ItemID:         itemID,
		Quantity:       quantity,
		IdempotencyKey: DetailKey(orderDetailID, KindRestock),
	}
}

// ConsumeTask 构造消费积分任务（订单级）
func ConsumeTask(orderID, userID uint, amount int64, reason string) *Task {
	return &Task{
		Kind:           KindConsumeMileage,
		OrderID:        orderID,
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: OrderKey(orderID, KindConsumeMileage),
	}
}

// RefundTask 构造返还积分任务（明细级）
func RefundTask(orderID, orderDetailID, userID uint, amount int64, reason string) *Task {
	return &Task{
		Kind:           KindRefundMileage,
		OrderID:        orderID,
		OrderDetailID:  orderDetailID,
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: DetailKey(orderDetailID, KindRefundMileage),
	}
}

// Execute 同步执行补偿调用
// 失败时任务入队（状态PENDING），错误原样返回
func (e *Executor) Execute(ctx context.Context, t *Task) error {
	if err := e.run(ctx, t); err != nil {
		metrics.IncCounterVec(metrics.CompensationExecutionsTotal, map[string]string{"kind": string(t.Kind), "result": "failure"})
		log.Printf("补偿调用失败，入队重试。key=%s err=%v", t.IdempotencyKey, err)

		t.Status = TaskPending
		t.Attempts = 1
		t.NextRetryAt = time.Now().Add(retryBackoff(t.Attempts))
		if enqueueErr := e.store.Enqueue(ctx, t); enqueueErr != nil {
			// outbox也写不进去时只能靠日志报警了
			log.Printf("补偿任务入队失败。key=%s err=%v", t.IdempotencyKey, enqueueErr)
		}
		return err
	}
	metrics.IncCounterVec(metrics.CompensationExecutionsTotal, map[string]string{"kind": string(t.Kind), "result": "success"})
	return nil
}

// run 按类型分发到对应的远程服务，重试与首次执行共用
func (e *Executor) run(ctx context.Context, t *Task) error {
	switch t.Kind {
	case KindRestock:
		return e.items.AdjustStock(ctx, []external.StockAdjustment{
			{ItemID: t.ItemID, Delta: t.Quantity},
		}, t.IdempotencyKey)

	case KindConsumeMileage:
		return e.mileage.Consume(ctx, t.UserID, t.Amount, t.Reason, t.IdempotencyKey)

	case KindRefundMileage:
		return e.mileage.Refund(ctx, t.UserID, t.Amount, t.Reason, t.IdempotencyKey)

	default:
		return fmt.Errorf("未知的补偿类型: %s", t.Kind)
	}
}

// retryBackoff 指数退避：30s、1m、2m、4m...，上限30m
func retryBackoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}
