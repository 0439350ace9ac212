package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dpang/order-server/internal/domain/order"
)

// OrderCache 订单聚合缓存(Cache-Aside)
//
// 教学要点：
// 1. 热点订单（刚下单的订单）查询频繁，先查缓存再回源数据库
// 2. 缓存JSON字符串而非HASH：Get一次拿到完整聚合，单次网络往返
// 3. 写路径（状态翻转、取消、退货）只删缓存不更新缓存，
//    下次读取时重新加载最新数据
//
// DO vs DON'T:
// ❌ DON'T: 永久缓存（内存无限增长，数据永不更新）
// ✅ DO: 设置合理的TTL，自动过期释放内存
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache 创建订单缓存
func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OrderCache{client: client, ttl: ttl}
}

// orderCacheKey 生成订单缓存键
// Redis Key命名规范：模块:实体:ID，如 order:detail:123
func orderCacheKey(orderID uint) string {
	return fmt.Sprintf("order:detail:%d", orderID)
}

// Get 读取订单缓存，未命中返回(nil, nil)
func (c *OrderCache) Get(ctx context.Context, orderID uint) (*order.Order, error) {
	val, err := c.client.Get(ctx, orderCacheKey(orderID)).Result()
	if err != nil {
		if err == redis.Nil {
			// Key不存在是未命中，不是错误
			return nil, nil
		}
		return nil, fmt.Errorf("获取订单缓存失败: %w", err)
	}

	var o order.Order
	if err := json.Unmarshal([]byte(val), &o); err != nil {
		return nil, fmt.Errorf("订单缓存反序列化失败: %w", err)
	}
	return &o, nil
}

// Set 写入订单缓存
// SetEx是原子操作：Set+Expire两步中间宕机会留下永久缓存
func (c *OrderCache) Set(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("订单序列化失败: %w", err)
	}

	if err := c.client.SetEx(ctx, orderCacheKey(o.ID), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("设置订单缓存失败: %w", err)
	}
	return nil
}

// Delete 删除订单缓存（状态翻转/取消/退货后调用）
func (c *OrderCache) Delete(ctx context.Context, orderID uint) error {
	if err := c.client.Del(ctx, orderCacheKey(orderID)).Err(); err != nil {
		return fmt.Errorf("删除订单缓存失败: %w", err)
	}
	return nil
}
