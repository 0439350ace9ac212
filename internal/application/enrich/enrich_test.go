package enrich

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/internal/domain/external"
)

type fakeItemService struct {
	mu      sync.Mutex
	items   map[uint]external.ItemInfo
	lastIDs []uint
	err     error
}

func (s *fakeItemService) GetItem(_ context.Context, _ uint) (*external.ItemInfo, error) {
	return nil, nil
}

func (s *fakeItemService) GetItems(_ context.Context, itemIDs []uint) ([]external.ItemInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.lastIDs = itemIDs
	var out []external.ItemInfo
	for _, id := range itemIDs {
		if info, ok := s.items[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *fakeItemService) AdjustStock(_ context.Context, _ []external.StockAdjustment, _ string) error {
	return nil
}

type fakeUserService struct {
	mu    sync.Mutex
	users map[uint]external.UserInfo
	err   error
}

func (s *fakeUserService) GetUser(_ context.Context, _ uint) (*external.UserInfo, error) {
	return nil, nil
}

func (s *fakeUserService) GetUsers(_ context.Context, userIDs []uint) ([]external.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []external.UserInfo
	for _, id := range userIDs {
		if info, ok := s.users[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func TestItemAndUserInfos(t *testing.T) {
	t.Run("两类信息并发查询并按ID索引", func(t *testing.T) {
		items := &fakeItemService{items: map[uint]external.ItemInfo{
			7: {ID: 7, Name: "羊毛围巾", Price: 1000},
			8: {ID: 8, Name: "皮手套", Price: 2000},
		}}
		users := &fakeUserService{users: map[uint]external.UserInfo{
			42: {UserID: 42, Name: "张三"},
		}}
		lookup := NewLookup(items, users)

		itemMap, userMap, err := lookup.ItemAndUserInfos(context.Background(), []uint{7, 8}, []uint{42})
		require.NoError(t, err)

		assert.Equal(t, "羊毛围巾", itemMap[7].Name)
		assert.Equal(t, "皮手套", itemMap[8].Name)
		assert.Equal(t, "张三", userMap[42].Name)
	})

	t.Run("ID去重后再发起远端调用", func(t *testing.T) {
		items := &fakeItemService{items: map[uint]external.ItemInfo{7: {ID: 7}}}
		lookup := NewLookup(items, &fakeUserService{})

		_, _, err := lookup.ItemAndUserInfos(context.Background(), []uint{7, 7, 7}, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint{7}, items.lastIDs)
	})

	t.Run("空ID列表不发起调用", func(t *testing.T) {
		items := &fakeItemService{}
		lookup := NewLookup(items, &fakeUserService{})

		itemMap, userMap, err := lookup.ItemAndUserInfos(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, itemMap)
		assert.Empty(t, userMap)
		assert.Nil(t, items.lastIDs)
	})

	t.Run("任一查询失败整体失败", func(t *testing.T) {
		items := &fakeItemService{err: assert.AnError}
		lookup := NewLookup(items, &fakeUserService{users: map[uint]external.UserInfo{42: {UserID: 42}}})

		_, _, err := lookup.ItemAndUserInfos(context.Background(), []uint{7}, []uint{42})
		assert.ErrorIs(t, err, assert.AnError)
	})
}
