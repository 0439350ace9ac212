// Package compensation 管理本地提交之后的远程补偿调用
//
// 背景：订单编排的原子性边界只覆盖本地数据库事务，
// 提交后的远程调用（回补库存、消费积分、返还积分）不受事务回滚保护。
// 远程调用失败时本地与远程状态会出现分歧，本包提供最低限度的保障：
// 1. 每次补偿调用携带幂等键（按 明细ID+操作类型 派生），重试天然幂等
// 2. 失败的补偿记入outbox表，由后台Worker按退避策略重试
//
// 注意：这里只保证"重试幂等"，不做业务层的自动回滚（那是另一个系统的职责）
package compensation

import (
	"context"
	"fmt"
	"time"
)

// Kind 补偿操作类型
type Kind string

const (
	// KindRestock 回补库存（取消/退货完成）
	KindRestock Kind = "RESTOCK"

	// KindConsumeMileage 消费积分（下单结算）
	KindConsumeMileage Kind = "CONSUME_MILEAGE"

	// KindRefundMileage 返还积分（取消/退货完成）
	KindRefundMileage Kind = "REFUND_MILEAGE"
)

// TaskStatus outbox任务状态
type TaskStatus int

const (
	TaskPending   TaskStatus = 1 // 等待重试
	TaskDone      TaskStatus = 2 // 已成功
	TaskAbandoned TaskStatus = 3 // 超过最大重试次数，等待人工介入
)

// Task 一条待执行/待重试的补偿任务
//
// 设计说明：任务里冗余了执行所需的全部参数（用户、商品、数量、金额），
// 重试时不需要回查订单聚合
type Task struct {
	ID             uint
	Kind           Kind
	OrderID        uint
	OrderDetailID  uint // 订单级操作（下单消费积分）时为0
	UserID         uint
	ItemID         uint
	Quantity       int
	Amount         int64
	Reason         string
	IdempotencyKey string
	Attempts       int
	Status         TaskStatus
	NextRetryAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DetailKey 明细级补偿的幂等键：同一明细的同类操作永远得到同一个键
func DetailKey(orderDetailID uint, kind Kind) string {
	return fmt.Sprintf("detail:%d:%s", orderDetailID, kind)
}

// OrderKey 订单级补偿的幂等键（下单消费积分按订单维度只发生一次）
func OrderKey(orderID uint, kind Kind) string {
	return fmt.Sprintf("order:%d:%s", orderID, kind)
}

// Store outbox任务仓储接口（MySQL实现见infrastructure/persistence/mysql）
type Store interface {
	// Enqueue 记录一条失败的补偿任务
	Enqueue(ctx context.Context, t *Task) error

	// DuePending 取出到期待重试的任务
	DuePending(ctx context.Context, now time.Time, limit int) ([]*Task, error)

	// MarkDone 标记任务成功
	MarkDone(ctx context.Context, id uint) error

	// Update 回写重试进度（attempts、next_retry_at、status）
	Update(ctx context.Context, t *Task) error
}
