// Package enrich 为读路径批量补齐商品与用户信息
package enrich

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dpang/order-server/internal/domain/external"
)

// Lookup 商品+用户信息的并发查询器
//
// 教学要点：
// 两次查询只读、互不依赖，所以并发发出、汇合后返回（降低尾延迟）。
// 这是延迟优化而非正确性要求：两个调用之间没有顺序约束，
// 写路径的校验不依赖这里的结果
type Lookup struct {
	items external.ItemService
	users external.UserService
}

// NewLookup 创建查询器
func NewLookup(items external.ItemService, users external.UserService) *Lookup {
	return &Lookup{items: items, users: users}
}

// ItemAndUserInfos 并发批量查询商品与用户信息，返回按ID索引的映射
// 任一查询失败则整体失败（列表响应需要两类信息都就位）
func (l *Lookup) ItemAndUserInfos(
	ctx context.Context,
	itemIDs []uint,
	userIDs []uint,
) (map[uint]external.ItemInfo, map[uint]external.UserInfo, error) {
	itemMap := make(map[uint]external.ItemInfo)
	userMap := make(map[uint]external.UserInfo)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(itemIDs) == 0 {
			return nil
		}
		infos, err := l.items.GetItems(gctx, dedup(itemIDs))
		if err != nil {
			return err
		}
		for _, info := range infos {
			itemMap[info.ID] = info
		}
		return nil
	})

	g.Go(func() error {
		if len(userIDs) == 0 {
			return nil
		}
		infos, err := l.users.GetUsers(gctx, dedup(userIDs))
		if err != nil {
			return err
		}
		for _, info := range infos {
			userMap[info.UserID] = info
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return itemMap, userMap, nil
}

// dedup 去重，保持首次出现的顺序
func dedup(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
