package order

import (
	"context"
	"time"
)

// OrderQuery 订单搜索条件（全部可选，零值表示不过滤）
type OrderQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    *uint
	Status    *OrderStatus
	Page      int
	PageSize  int
}

// CancelQuery 取消记录搜索条件
type CancelQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Reason    *Reason
	UserID    *uint
	Page      int
	PageSize  int
}

// RefundQuery 退货记录搜索条件
type RefundQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Reason    *Reason
	Status    *RefundStatus
	UserID    *uint
	Page      int
	PageSize  int
}

// Repository 订单聚合仓储接口
//
// 教学要点：
// 1. 接口定义在domain层，MySQL实现在infrastructure层（依赖倒置）
// 2. FindByID返回完整聚合（明细、收货人、已挂载的取消/退货记录），
//    取消/退货编排都先经过聚合再定位明细
// 3. 并发取消/退货靠持久层的行级锁串行化（LockDetailByID），
//    不在应用层加互斥锁
type Repository interface {
	// Create 创建订单（级联保存明细与收货人，必须在事务中调用）
	Create(ctx context.Context, o *Order) error

	// FindByID 按ID查询完整聚合
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindDetailByID 按ID查询单条明细（含挂载的取消/退货记录）
	FindDetailByID(ctx context.Context, detailID uint) (*OrderDetail, error)

	// LockDetailByID 按ID加行锁查询明细（SELECT ... FOR UPDATE）
	// 取消/退货前置状态检查依赖此锁防止双重取消，必须在事务中调用
	LockDetailByID(ctx context.Context, detailID uint) (*OrderDetail, error)

	// FindDetailsByIDs 批量查询明细（列表富化用）
	FindDetailsByIDs(ctx context.Context, ids []uint) ([]OrderDetail, error)

	// UpdateStatus 更新订单状态（订单行与全部明细行一起更新）
	UpdateStatus(ctx context.Context, orderID uint, status OrderStatus) error

	// UpdateDetailStatus 更新单条明细状态
	UpdateDetailStatus(ctx context.Context, detailID uint, status OrderStatus) error

	// UpdateRecipient 更新收货人信息（下单后唯一合法的收货人变更入口）
	UpdateRecipient(ctx context.Context, orderID uint, r *OrderRecipient) error

	// Search 条件分页查询
	Search(ctx context.Context, q OrderQuery) ([]*Order, int64, error)
}

// CancelRepository 取消记录仓储接口
type CancelRepository interface {
	// Create 创建取消记录，并在同一次写入中回填明细上的关联
	Create(ctx context.Context, c *Cancel) error

	FindByID(ctx context.Context, id uint) (*Cancel, error)

	Search(ctx context.Context, q CancelQuery) ([]*Cancel, int64, error)
}

// RefundRepository 退货记录仓储接口
type RefundRepository interface {
	// Create 创建退货记录（级联保存回收信息）
	Create(ctx context.Context, r *Refund) error

	FindByID(ctx context.Context, id uint) (*Refund, error)

	// UpdateStatus 更新退货状态；completedAt仅在进入REFUND_COMPLETE时写入
	UpdateStatus(ctx context.Context, refundID uint, status RefundStatus, completedAt *time.Time) error

	Search(ctx context.Context, q RefundQuery) ([]*Refund, int64, error)
}
