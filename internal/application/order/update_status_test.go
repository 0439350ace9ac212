package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/internal/domain/order"
)

func seedOrder(t *testing.T, repo *fakeOrderRepo, status order.OrderStatus) *order.Order {
	t.Helper()
	o := &order.Order{
		UserID:               42,
		Status:               status,
		ProductPaymentAmount: 3000,
		DeliveryFee:          order.DeliveryFee,
		CreatedAt:            time.Now(),
		Recipient: &order.OrderRecipient{
			Name:        "张三",
			PhoneNumber: "010-1234-5678",
			ZipCode:     "04524",
			Address:     "首尔特别市中区世宗大路110",
		},
		Details: []order.OrderDetail{
			{Status: status, ItemID: 7, PurchasePrice: 1000, Quantity: 3},
		},
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestUpdateStatus(t *testing.T) {
	newFixture := func(status order.OrderStatus) (*UpdateStatusUseCase, *fakeOrderRepo, *fakeCache, *fakeEventPublisher, *order.Order) {
		repo := newFakeOrderRepo()
		cache := &fakeCache{}
		events := &fakeEventPublisher{}
		uc := NewUpdateStatusUseCase(repo, cache, events)
		o := seedOrder(t, repo, status)
		return uc, repo, cache, events, o
	}

	t.Run("逐级推进：订单与全部明细一并翻转", func(t *testing.T) {
		uc, repo, cache, events, o := newFixture(order.StatusPaymentCompleted)

		err := uc.Execute(context.Background(), o.ID, order.StatusDeliveryRequested)
		require.NoError(t, err)

		got, err := repo.FindByID(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDeliveryRequested, got.Status)
		assert.Equal(t, order.StatusDeliveryRequested, got.Details[0].Status)

		assert.Equal(t, []uint{o.ID}, cache.deletedOrders, "状态变更应失效缓存")
		require.Len(t, events.events, 1)
		assert.Equal(t, "order.status_changed", events.events[0].RoutingKey)
	})

	t.Run("跳级推进被拒绝", func(t *testing.T) {
		uc, repo, _, _, o := newFixture(order.StatusPaymentCompleted)

		err := uc.Execute(context.Background(), o.ID, order.StatusInDelivery)
		assert.ErrorIs(t, err, order.ErrInvalidOrderStatusChange)

		got, _ := repo.FindByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusPaymentCompleted, got.Status, "状态不应变化")
	})

	t.Run("推进到当前状态报已处于该状态", func(t *testing.T) {
		uc, _, _, events, o := newFixture(order.StatusInDelivery)

		err := uc.Execute(context.Background(), o.ID, order.StatusInDelivery)
		assert.ErrorIs(t, err, order.ErrAlreadyInRequestedStatus)
		assert.Empty(t, events.events, "拒绝时不应发事件")
	})

	t.Run("回退被拒绝", func(t *testing.T) {
		uc, _, _, _, o := newFixture(order.StatusInDelivery)

		err := uc.Execute(context.Background(), o.ID, order.StatusDeliveryRequested)
		assert.ErrorIs(t, err, order.ErrInvalidOrderStatusChange)
	})

	t.Run("订单不存在", func(t *testing.T) {
		uc, _, _, _, _ := newFixture(order.StatusPaymentCompleted)

		err := uc.Execute(context.Background(), 999, order.StatusDeliveryRequested)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("有明细先行推进时整单推进被拒绝，不回退明细", func(t *testing.T) {
		repo := newFakeOrderRepo()
		uc := NewUpdateStatusUseCase(repo, &fakeCache{}, &fakeEventPublisher{})
		o := seedOrder(t, repo, order.StatusDeliveryRequested)
		detailID := o.Details[0].ID

		// 明细单独推进两步，跑到整单前面
		require.NoError(t, uc.ExecuteDetail(context.Background(), o.ID, detailID, order.StatusPreparingForDelivery))
		require.NoError(t, uc.ExecuteDetail(context.Background(), o.ID, detailID, order.StatusInDelivery))

		// 整单推进到明细已越过的状态：拒绝，明细状态保持不动
		err := uc.Execute(context.Background(), o.ID, order.StatusPreparingForDelivery)
		assert.ErrorIs(t, err, order.ErrInvalidOrderStatusChange)

		d, _ := repo.FindDetailByID(context.Background(), detailID)
		assert.Equal(t, order.StatusInDelivery, d.Status, "先行的明细不应被整单推进回退")
		got, _ := repo.FindByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusDeliveryRequested, got.Status, "整单状态不应变化")
	})

	t.Run("明细恰好等于目标状态时整单推进放行", func(t *testing.T) {
		repo := newFakeOrderRepo()
		uc := NewUpdateStatusUseCase(repo, &fakeCache{}, &fakeEventPublisher{})
		o := seedOrder(t, repo, order.StatusDeliveryRequested)
		detailID := o.Details[0].ID

		// 明细先行一步，正好落在整单的推进目标上
		require.NoError(t, uc.ExecuteDetail(context.Background(), o.ID, detailID, order.StatusPreparingForDelivery))

		err := uc.Execute(context.Background(), o.ID, order.StatusPreparingForDelivery)
		require.NoError(t, err)

		got, _ := repo.FindByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusPreparingForDelivery, got.Status)
	})

	t.Run("整单推进不翻转已取消的明细", func(t *testing.T) {
		repo := newFakeOrderRepo()
		uc := NewUpdateStatusUseCase(repo, &fakeCache{}, &fakeEventPublisher{})

		// 两条明细：一条已取消，一条正常
		o := &order.Order{
			UserID:               42,
			Status:               order.StatusPaymentCompleted,
			ProductPaymentAmount: 5000,
			DeliveryFee:          order.DeliveryFee,
			CreatedAt:            time.Now(),
			Details: []order.OrderDetail{
				{Status: order.StatusCancelled, ItemID: 7, PurchasePrice: 1000, Quantity: 3},
				{Status: order.StatusPaymentCompleted, ItemID: 8, PurchasePrice: 2000, Quantity: 1},
			},
		}
		require.NoError(t, repo.Create(context.Background(), o))

		err := uc.Execute(context.Background(), o.ID, order.StatusDeliveryRequested)
		require.NoError(t, err)

		got, _ := repo.FindByID(context.Background(), o.ID)
		assert.Equal(t, order.StatusDeliveryRequested, got.Status)
		assert.Equal(t, order.StatusCancelled, got.Details[0].Status, "已取消的明细永不离开CANCELLED")
		assert.Equal(t, order.StatusDeliveryRequested, got.Details[1].Status)
	})
}

func TestUpdateDetailStatus(t *testing.T) {
	t.Run("单条明细独立推进", func(t *testing.T) {
		repo := newFakeOrderRepo()
		cache := &fakeCache{}
		events := &fakeEventPublisher{}
		uc := NewUpdateStatusUseCase(repo, cache, events)
		o := seedOrder(t, repo, order.StatusPaymentCompleted)
		detailID := o.Details[0].ID

		err := uc.ExecuteDetail(context.Background(), o.ID, detailID, order.StatusDeliveryRequested)
		require.NoError(t, err)

		d, err := repo.FindDetailByID(context.Background(), detailID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusDeliveryRequested, d.Status)
	})

	t.Run("明细不属于该订单", func(t *testing.T) {
		repo := newFakeOrderRepo()
		uc := NewUpdateStatusUseCase(repo, &fakeCache{}, &fakeEventPublisher{})
		o := seedOrder(t, repo, order.StatusPaymentCompleted)

		err := uc.ExecuteDetail(context.Background(), o.ID, 9999, order.StatusDeliveryRequested)
		assert.ErrorIs(t, err, order.ErrOrderDetailNotFound)
	})

	t.Run("明细跳级同样被拒绝", func(t *testing.T) {
		repo := newFakeOrderRepo()
		uc := NewUpdateStatusUseCase(repo, &fakeCache{}, &fakeEventPublisher{})
		o := seedOrder(t, repo, order.StatusPaymentCompleted)

		err := uc.ExecuteDetail(context.Background(), o.ID, o.Details[0].ID, order.StatusDeliveryCompleted)
		assert.ErrorIs(t, err, order.ErrInvalidOrderStatusChange)
	})
}
