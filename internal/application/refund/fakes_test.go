package refund

import (
	"context"
	"time"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// 测试替身：覆盖退货编排依赖的最小实现

type fakeOrderRepo struct {
	orders map[uint]*order.Order
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uint) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindDetailByID(_ context.Context, detailID uint) (*order.OrderDetail, error) {
	for _, o := range r.orders {
		if d := o.DetailByID(detailID); d != nil {
			return d, nil
		}
	}
	return nil, order.ErrOrderDetailNotFound
}

func (r *fakeOrderRepo) LockDetailByID(ctx context.Context, detailID uint) (*order.OrderDetail, error) {
	return r.FindDetailByID(ctx, detailID)
}

func (r *fakeOrderRepo) FindDetailsByIDs(_ context.Context, _ []uint) ([]order.OrderDetail, error) {
	return nil, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderID uint, status order.OrderStatus) error {
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (r *fakeOrderRepo) UpdateDetailStatus(ctx context.Context, detailID uint, status order.OrderStatus) error {
	d, err := r.FindDetailByID(ctx, detailID)
	if err != nil {
		return err
	}
	d.Status = status
	return nil
}

func (r *fakeOrderRepo) UpdateRecipient(_ context.Context, _ uint, _ *order.OrderRecipient) error {
	return nil
}

func (r *fakeOrderRepo) Search(_ context.Context, _ order.OrderQuery) ([]*order.Order, int64, error) {
	return nil, 0, nil
}

type fakeRefundRepo struct {
	nextID  uint
	refunds map[uint]*order.Refund
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: make(map[uint]*order.Refund)}
}

func (r *fakeRefundRepo) Create(_ context.Context, ref *order.Refund) error {
	r.nextID++
	ref.ID = r.nextID
	if ref.Recall != nil {
		ref.Recall.RefundID = ref.ID
	}
	r.refunds[ref.ID] = ref
	return nil
}

func (r *fakeRefundRepo) FindByID(_ context.Context, id uint) (*order.Refund, error) {
	ref, ok := r.refunds[id]
	if !ok {
		return nil, order.ErrRefundNotFound
	}
	return ref, nil
}

func (r *fakeRefundRepo) UpdateStatus(_ context.Context, refundID uint, status order.RefundStatus, completedAt *time.Time) error {
	ref, ok := r.refunds[refundID]
	if !ok {
		return order.ErrRefundNotFound
	}
	ref.Status = status
	if completedAt != nil {
		ref.CompletedAt = completedAt
	}
	return nil
}

func (r *fakeRefundRepo) Search(_ context.Context, _ order.RefundQuery) ([]*order.Refund, int64, error) {
	return nil, 0, nil
}

type fakeTxManager struct{}

func (fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeItemService struct {
	stock     map[uint]int
	keys      []string
	adjustErr error
}

func (s *fakeItemService) GetItem(_ context.Context, _ uint) (*external.ItemInfo, error) {
	return nil, nil
}

func (s *fakeItemService) GetItems(_ context.Context, _ []uint) ([]external.ItemInfo, error) {
	return nil, nil
}

func (s *fakeItemService) AdjustStock(_ context.Context, adjustments []external.StockAdjustment, key string) error {
	if s.adjustErr != nil {
		return s.adjustErr
	}
	for _, adj := range adjustments {
		s.stock[adj.ItemID] += adj.Delta
	}
	s.keys = append(s.keys, key)
	return nil
}

type refundCall struct {
	UserID uint
	Amount int64
	Key    string
}

type fakeMileageService struct {
	refunds []refundCall
}

func (s *fakeMileageService) GetBalance(_ context.Context, _ uint) (*external.MileageInfo, error) {
	return &external.MileageInfo{}, nil
}

func (s *fakeMileageService) Consume(_ context.Context, _ uint, _ int64, _, _ string) error {
	return nil
}

func (s *fakeMileageService) Refund(_ context.Context, userID uint, amount int64, _, key string) error {
	s.refunds = append(s.refunds, refundCall{UserID: userID, Amount: amount, Key: key})
	return nil
}

type fakeCompStore struct {
	tasks []*compensation.Task
}

func (s *fakeCompStore) Enqueue(_ context.Context, t *compensation.Task) error {
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *fakeCompStore) DuePending(_ context.Context, _ time.Time, _ int) ([]*compensation.Task, error) {
	return nil, nil
}

func (s *fakeCompStore) MarkDone(_ context.Context, _ uint) error { return nil }

func (s *fakeCompStore) Update(_ context.Context, _ *compensation.Task) error { return nil }

type fakeEventPublisher struct {
	routingKeys []string
}

func (p *fakeEventPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

type fakeCache struct {
	deleted []uint
}

func (c *fakeCache) Delete(_ context.Context, orderID uint) error {
	c.deleted = append(c.deleted, orderID)
	return nil
}
