package refund

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/order"
	"github.com/dpang/order-server/pkg/metrics"
)

// refundStatusFixture 退货状态推进用例与替身
type refundStatusFixture struct {
	uc      *UpdateRefundStatusUseCase
	repo    *fakeOrderRepo
	refunds *fakeRefundRepo
	items   *fakeItemService
	mileage *fakeMileageService
	events  *fakeEventPublisher
	cache   *fakeCache
	store   *fakeCompStore
	ref     *order.Refund
}

// newRefundStatusFixture 准备一条指定状态的退货记录（明细1000×3，已取消挂载）
func newRefundStatusFixture(t *testing.T, status order.RefundStatus) *refundStatusFixture {
	t.Helper()
	metrics.InitMetrics()

	ord := &order.Order{
		ID:     1,
		UserID: 42,
		Status: order.StatusDeliveryCompleted,
		Details: []order.OrderDetail{
			{ID: 11, OrderID: 1, Status: order.StatusCancelled, ItemID: 7, PurchasePrice: 1000, Quantity: 3},
		},
	}
	repo := &fakeOrderRepo{orders: map[uint]*order.Order{1: ord}}

	refunds := newFakeRefundRepo()
	ref := &order.Refund{
		OrderDetailID: 11,
		Reason:        order.ReasonProductDiscontent,
		Status:        status,
		RefundAmount:  3000,
	}
	require.NoError(t, refunds.Create(context.Background(), ref))

	items := &fakeItemService{stock: map[uint]int{7: 2}}
	mileage := &fakeMileageService{}
	events := &fakeEventPublisher{}
	cache := &fakeCache{}
	store := &fakeCompStore{}
	comp := compensation.NewExecutor(items, mileage, store)

	return &refundStatusFixture{
		uc:      NewUpdateRefundStatusUseCase(refunds, repo, fakeTxManager{}, comp, events, cache),
		repo:    repo,
		refunds: refunds,
		items:   items,
		mileage: mileage,
		events:  events,
		cache:   cache,
		store:   store,
		ref:     ref,
	}
}

func TestUpdateRefundStatus(t *testing.T) {
	t.Run("申请到回收中：仅改状态，无副作用", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusRequest)

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusCollecting)
		require.NoError(t, err)

		assert.Equal(t, order.RefundStatusCollecting, f.ref.Status)
		assert.Nil(t, f.ref.CompletedAt)
		assert.Equal(t, 2, f.items.stock[7], "回收中不回补库存")
		assert.Empty(t, f.mileage.refunds, "回收中不退积分")
		assert.Empty(t, f.events.routingKeys)
	})

	t.Run("回收中到完成：回补库存、退积分、记完成时间", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusCollecting)

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete)
		require.NoError(t, err)

		assert.Equal(t, order.RefundStatusComplete, f.ref.Status)
		assert.NotNil(t, f.ref.CompletedAt)

		assert.Equal(t, 5, f.items.stock[7], "库存回补3件")
		assert.Equal(t, []string{compensation.DetailKey(11, compensation.KindRestock)}, f.items.keys)

		require.Len(t, f.mileage.refunds, 1)
		assert.Equal(t, uint(42), f.mileage.refunds[0].UserID)
		assert.Equal(t, int64(3000), f.mileage.refunds[0].Amount, "退积分=明细小计")
		assert.Equal(t, compensation.DetailKey(11, compensation.KindRefundMileage), f.mileage.refunds[0].Key)

		assert.Equal(t, []uint{1}, f.cache.deleted)
		assert.Contains(t, f.events.routingKeys, "refund.completed")
	})

	t.Run("跳过回收中直达完成被拒绝", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusRequest)

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete)
		assert.ErrorIs(t, err, order.ErrInvalidRefundStatusChange)
		assert.Empty(t, f.mileage.refunds)
	})

	t.Run("完成后任何推进都被拒绝：补偿恰好触发一次", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusCollecting)

		require.NoError(t, f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete))

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete)
		assert.ErrorIs(t, err, order.ErrAlreadyInRequestedStatus)

		err = f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusCollecting)
		assert.ErrorIs(t, err, order.ErrInvalidRefundStatusChange)

		assert.Len(t, f.mileage.refunds, 1, "积分只退一次")
		assert.Equal(t, 5, f.items.stock[7], "库存只回补一次")
	})

	t.Run("目标等于当前状态", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusCollecting)

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusCollecting)
		assert.ErrorIs(t, err, order.ErrAlreadyInRequestedStatus)
	})

	t.Run("库存回补失败不阻断退积分", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusCollecting)
		f.items.adjustErr = assert.AnError

		err := f.uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete)
		require.Error(t, err)

		// 状态已落库，回库存入outbox等待重试，积分照常退到账
		assert.Equal(t, order.RefundStatusComplete, f.ref.Status)
		require.Len(t, f.store.tasks, 1)
		assert.Equal(t, compensation.KindRestock, f.store.tasks[0].Kind)
		assert.Equal(t, compensation.TaskPending, f.store.tasks[0].Status)

		require.Len(t, f.mileage.refunds, 1)
		assert.Equal(t, int64(3000), f.mileage.refunds[0].Amount)
	})

	t.Run("退货记录不存在", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusRequest)

		err := f.uc.Execute(context.Background(), 999, order.RefundStatusCollecting)
		assert.ErrorIs(t, err, order.ErrRefundNotFound)
	})

	t.Run("并发完成：后拿到锁的请求看到已完成而失败", func(t *testing.T) {
		f := newRefundStatusFixture(t, order.RefundStatusCollecting)

		// 对手方在我们等锁期间已提交完成：加锁返回前把状态翻成完成，
		// 锁后重读必须看到新状态
		repo := &raceLockRepo{
			fakeOrderRepo: f.repo,
			onLock: func() {
				f.ref.Status = order.RefundStatusComplete
			},
		}
		comp := compensation.NewExecutor(f.items, f.mileage, f.store)
		uc := NewUpdateRefundStatusUseCase(f.refunds, repo, fakeTxManager{}, comp, f.events, f.cache)

		err := uc.Execute(context.Background(), f.ref.ID, order.RefundStatusComplete)
		assert.ErrorIs(t, err, order.ErrAlreadyInRequestedStatus)
		assert.Empty(t, f.mileage.refunds, "输掉竞争的一方不触发补偿")
	})
}

// raceLockRepo 在加锁返回前执行回调，模拟等锁期间对手方提交
type raceLockRepo struct {
	*fakeOrderRepo
	onLock func()
}

func (r *raceLockRepo) LockDetailByID(ctx context.Context, detailID uint) (*order.OrderDetail, error) {
	if r.onLock != nil {
		r.onLock()
	}
	return r.fakeOrderRepo.LockDetailByID(ctx, detailID)
}
