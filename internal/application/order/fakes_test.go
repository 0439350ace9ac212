package order

import (
	"context"
	"sync"
	"time"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// 测试替身：手写内存实现
// 用例测试关注编排逻辑（校验顺序、事务边界、远端调用参数），
// 持久化与远程调用细节由各自的实现包自测

// fakeOrderRepo 内存订单仓储
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[uint]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{nextID: 1, orders: make(map[uint]*order.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	for i := range o.Details {
		o.Details[i].ID = o.ID*100 + uint(i) + 1
		o.Details[i].OrderID = o.ID
	}
	if o.Recipient != nil {
		o.Recipient.OrderID = o.ID
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uint) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindDetailByID(_ context.Context, detailID uint) (*order.OrderDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *fakeOrderRepo) FindDetailsByIDs(_ context.Context, ids []uint) ([]order.OrderDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.OrderDetail
	for _, id := range ids {
		for _, o := range r.orders {
			if d := o.DetailByID(id); d != nil {
				out = append(out, *d)
			}
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderID uint, status order.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	// 与持久层语义一致：已取消的明细不跟随整单翻转
	for i := range o.Details {
		if o.Details[i].Status == order.StatusCancelled {
			continue
		}
		o.Details[i].Status = status
	}
	return nil
}

func (r *fakeOrderRepo) UpdateDetailStatus(_ context.Context, detailID uint, status order.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if d := o.DetailByID(detailID); d != nil {
			d.Status = status
			return nil
		}
	}
	return order.ErrOrderDetailNotFound
}

func (r *fakeOrderRepo) UpdateRecipient(_ context.Context, orderID uint, rec *order.OrderRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	rec.OrderID = orderID
	o.Recipient = rec
	return nil
}

func (r *fakeOrderRepo) Search(_ context.Context, q order.OrderQuery) ([]*order.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		if q.Status != nil && o.Status != *q.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

// fakeTxManager 直通事务：回调直接执行，不提供回滚
// 编排逻辑保证校验失败发生在任何写入之前，所以直通即可
type fakeTxManager struct{}

func (fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stockCall 一次库存调整调用的记录
type stockCall struct {
	Adjustments    []external.StockAdjustment
	IdempotencyKey string
}

// fakeItemService 内存商品服务
type fakeItemService struct {
	mu    sync.Mutex
	items map[uint]external.ItemInfo

	adjustErr  error
	stockCalls []stockCall
}

func newFakeItemService(items ...external.ItemInfo) *fakeItemService {
	m := make(map[uint]external.ItemInfo, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return &fakeItemService{items: m}
}

func (s *fakeItemService) GetItem(_ context.Context, itemID uint) (*external.ItemInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.items[itemID]
	if !ok {
		return nil, order.ErrProductNotFound
	}
	return &info, nil
}

func (s *fakeItemService) GetItems(_ context.Context, itemIDs []uint) ([]external.ItemInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []external.ItemInfo
	for _, id := range itemIDs {
		if info, ok := s.items[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *fakeItemService) AdjustStock(_ context.Context, adjustments []external.StockAdjustment, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adjustErr != nil {
		return s.adjustErr
	}
	s.stockCalls = append(s.stockCalls, stockCall{Adjustments: adjustments, IdempotencyKey: key})
	for _, adj := range adjustments {
		info := s.items[adj.ItemID]
		info.Quantity += adj.Delta
		s.items[adj.ItemID] = info
	}
	return nil
}

// stock 当前库存（断言用）
func (s *fakeItemService) stock(itemID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[itemID].Quantity
}

// mileageCall 一次积分变动调用的记录
type mileageCall struct {
	Op             string // consume / refund
	UserID         uint
	Amount         int64
	Reason         string
	IdempotencyKey string
}

// fakeMileageService 内存积分服务
type fakeMileageService struct {
	mu      sync.Mutex
	balance int64

	consumeErr error
	refundErr  error
	calls      []mileageCall
}

func newFakeMileageService(balance int64) *fakeMileageService {
	return &fakeMileageService{balance: balance}
}

func (s *fakeMileageService) GetBalance(_ context.Context, _ uint) (*external.MileageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &external.MileageInfo{Mileage: s.balance}, nil
}

func (s *fakeMileageService) Consume(_ context.Context, userID uint, amount int64, reason, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumeErr != nil {
		return s.consumeErr
	}
	s.balance -= amount
	s.calls = append(s.calls, mileageCall{Op: "consume", UserID: userID, Amount: amount, Reason: reason, IdempotencyKey: key})
	return nil
}

func (s *fakeMileageService) Refund(_ context.Context, userID uint, amount int64, reason, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundErr != nil {
		return s.refundErr
	}
	s.balance += amount
	s.calls = append(s.calls, mileageCall{Op: "refund", UserID: userID, Amount: amount, Reason: reason, IdempotencyKey: key})
	return nil
}

// fakeCompStore 内存outbox
type fakeCompStore struct {
	mu     sync.Mutex
	nextID uint
	tasks  []*compensation.Task
}

func newFakeCompStore() *fakeCompStore {
	return &fakeCompStore{nextID: 1}
}

func (s *fakeCompStore) Enqueue(_ context.Context, t *compensation.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *fakeCompStore) DuePending(_ context.Context, now time.Time, limit int) ([]*compensation.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*compensation.Task
	for _, t := range s.tasks {
		if t.Status == compensation.TaskPending && !t.NextRetryAt.After(now) {
			out = append(out, t)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeCompStore) MarkDone(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			t.Status = compensation.TaskDone
			return nil
		}
	}
	return nil
}

func (s *fakeCompStore) Update(_ context.Context, task *compensation.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = task
			return nil
		}
	}
	return nil
}

// publishedEvent 一条已发布事件的记录
type publishedEvent struct {
	RoutingKey string
	Event      interface{}
}

// fakeEventPublisher 记录型事件发布器
type fakeEventPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakeEventPublisher) Publish(_ context.Context, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{RoutingKey: routingKey, Event: event})
	return nil
}

// fakeCache 记录失效次数的缓存替身
type fakeCache struct {
	mu            sync.Mutex
	deletedOrders []uint
}

func (c *fakeCache) Get(_ context.Context, _ uint) (*order.Order, error) { return nil, nil }

func (c *fakeCache) Set(_ context.Context, _ *order.Order) error { return nil }

func (c *fakeCache) Delete(_ context.Context, orderID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletedOrders = append(c.deletedOrders, orderID)
	return nil
}
