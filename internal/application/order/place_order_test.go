package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
	"github.com/dpang/order-server/pkg/metrics"
)

// placeOrderFixture 下单用例及其全部替身
type placeOrderFixture struct {
	uc      *PlaceOrderUseCase
	repo    *fakeOrderRepo
	items   *fakeItemService
	mileage *fakeMileageService
	store   *fakeCompStore
	events  *fakeEventPublisher
}

func newPlaceOrderFixture(items *fakeItemService, mileage *fakeMileageService) *placeOrderFixture {
	metrics.InitMetrics()
	repo := newFakeOrderRepo()
	store := newFakeCompStore()
	events := &fakeEventPublisher{}
	comp := compensation.NewExecutor(items, mileage, store)
	return &placeOrderFixture{
		uc:      NewPlaceOrderUseCase(repo, fakeTxManager{}, items, mileage, comp, events),
		repo:    repo,
		items:   items,
		mileage: mileage,
		store:   store,
		events:  events,
	}
}

func placeRequest(items ...LineItemInput) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		UserID:          42,
		DeliveryRequest: "放在门口",
		Recipient: RecipientInput{
			Name:        "张三",
			PhoneNumber: "010-1234-5678",
			ZipCode:     "04524",
			Address:     "首尔特别市中区世宗大路110",
		},
		Items: items,
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("成功下单：扣库存、扣积分、状态翻到支付完成", func(t *testing.T) {
		items := newFakeItemService(external.ItemInfo{ID: 7, Name: "羊毛围巾", Price: 1000, Quantity: 5})
		mileage := newFakeMileageService(10000)
		f := newPlaceOrderFixture(items, mileage)

		o, err := f.uc.Execute(context.Background(), placeRequest(LineItemInput{ItemID: 7, Quantity: 3}))
		require.NoError(t, err)
		require.NotNil(t, o)

		// 金额：商品3×1000 + 配送费3000
		assert.Equal(t, int64(3000), o.ProductPaymentAmount)
		assert.Equal(t, int64(3000), o.DeliveryFee)
		assert.Equal(t, int64(6000), o.TotalDue())

		// 状态：订单与明细都翻到PAYMENT_COMPLETED
		assert.Equal(t, order.StatusPaymentCompleted, o.Status)
		require.Len(t, o.Details, 1)
		assert.Equal(t, order.StatusPaymentCompleted, o.Details[0].Status)
		assert.Equal(t, int64(1000), o.Details[0].PurchasePrice, "单价应快照到明细")

		// 远端副作用
		assert.Equal(t, 2, items.stock(7), "库存应扣减3")
		require.Len(t, mileage.calls, 1)
		assert.Equal(t, "consume", mileage.calls[0].Op)
		assert.Equal(t, int64(6000), mileage.calls[0].Amount, "扣减的积分含配送费")
		assert.Equal(t, compensation.OrderKey(o.ID, compensation.KindConsumeMileage), mileage.calls[0].IdempotencyKey)

		// 事件
		require.Len(t, f.events.events, 1)
		assert.Equal(t, "order.placed", f.events.events[0].RoutingKey)
	})

	t.Run("库存不足：拒单且无任何写入", func(t *testing.T) {
		items := newFakeItemService(external.ItemInfo{ID: 7, Price: 1000, Quantity: 2})
		mileage := newFakeMileageService(10000)
		f := newPlaceOrderFixture(items, mileage)

		_, err := f.uc.Execute(context.Background(), placeRequest(LineItemInput{ItemID: 7, Quantity: 3}))
		assert.ErrorIs(t, err, order.ErrInsufficientStock)

		assert.Empty(t, f.repo.orders, "不应创建订单")
		assert.Empty(t, mileage.calls, "不应动积分")
		assert.Equal(t, 2, items.stock(7), "不应动库存")
	})

	t.Run("积分不足：拒单且无任何写入", func(t *testing.T) {
		items := newFakeItemService(external.ItemInfo{ID: 7, Price: 1000, Quantity: 5})
		mileage := newFakeMileageService(5999) // 差1分
		f := newPlaceOrderFixture(items, mileage)

		_, err := f.uc.Execute(context.Background(), placeRequest(LineItemInput{ItemID: 7, Quantity: 3}))
		assert.ErrorIs(t, err, order.ErrInsufficientMileage)

		assert.Empty(t, f.repo.orders)
		assert.Empty(t, mileage.calls)
	})

	t.Run("商品不存在", func(t *testing.T) {
		items := newFakeItemService() // 空目录
		mileage := newFakeMileageService(10000)
		f := newPlaceOrderFixture(items, mileage)

		_, err := f.uc.Execute(context.Background(), placeRequest(LineItemInput{ItemID: 99, Quantity: 1}))
		assert.ErrorIs(t, err, order.ErrProductNotFound)
		assert.Empty(t, f.repo.orders)
	})

	t.Run("多商品订单：金额逐行累加", func(t *testing.T) {
		items := newFakeItemService(
			external.ItemInfo{ID: 1, Price: 1500, Quantity: 10},
			external.ItemInfo{ID: 2, Price: 2000, Quantity: 10},
		)
		mileage := newFakeMileageService(100000)
		f := newPlaceOrderFixture(items, mileage)

		o, err := f.uc.Execute(context.Background(), placeRequest(
			LineItemInput{ItemID: 1, Quantity: 2},
			LineItemInput{ItemID: 2, Quantity: 1},
		))
		require.NoError(t, err)

		assert.Equal(t, int64(5000), o.ProductPaymentAmount) // 2×1500 + 1×2000
		assert.Equal(t, int64(8000), o.TotalDue())
		assert.Len(t, o.Details, 2)
		assert.Equal(t, 8, items.stock(1))
		assert.Equal(t, 9, items.stock(2))
	})

	t.Run("扣积分失败：错误上抛但任务已入outbox", func(t *testing.T) {
		items := newFakeItemService(external.ItemInfo{ID: 7, Price: 1000, Quantity: 5})
		mileage := newFakeMileageService(10000)
		mileage.consumeErr = assert.AnError
		f := newPlaceOrderFixture(items, mileage)

		_, err := f.uc.Execute(context.Background(), placeRequest(LineItemInput{ItemID: 7, Quantity: 1}))
		require.Error(t, err)

		require.Len(t, f.store.tasks, 1, "失败的扣积分应入队重试")
		task := f.store.tasks[0]
		assert.Equal(t, compensation.KindConsumeMileage, task.Kind)
		assert.Equal(t, compensation.TaskPending, task.Status)
		assert.Equal(t, 1, task.Attempts)
	})

	t.Run("空商品列表被拒绝", func(t *testing.T) {
		f := newPlaceOrderFixture(newFakeItemService(), newFakeMileageService(0))

		_, err := f.uc.Execute(context.Background(), placeRequest())
		assert.Error(t, err)
	})
}
