package order

import (
	"context"

	"github.com/dpang/order-server/internal/domain/order"
)

// TxManager 事务管理接口（由基础设施层实现）
// 回调内通过 ctx 传递事务句柄，仓储自行提取
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 领域事件发布接口
// 发布失败不回滚业务事务，事件属于尽力通知
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// Cache 订单聚合缓存接口（cache-aside）
type Cache interface {
	Get(ctx context.Context, orderID uint) (*order.Order, error)
	Set(ctx context.Context, o *order.Order) error
	Delete(ctx context.Context, orderID uint) error
}
