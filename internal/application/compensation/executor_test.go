package compensation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/pkg/metrics"
)

// 测试替身
// Worker.Start会在独立goroutine里调用，替身需要自己串行化

type fakeItemService struct {
	mu        sync.Mutex
	stock     map[uint]int
	keys      []string
	adjustErr error
	callCount int
}

func (s *fakeItemService) GetItem(_ context.Context, _ uint) (*external.ItemInfo, error) {
	return nil, nil
}

func (s *fakeItemService) GetItems(_ context.Context, _ []uint) ([]external.ItemInfo, error) {
	return nil, nil
}

func (s *fakeItemService) AdjustStock(_ context.Context, adjustments []external.StockAdjustment, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount++
	if s.adjustErr != nil {
		return s.adjustErr
	}
	for _, adj := range adjustments {
		s.stock[adj.ItemID] += adj.Delta
	}
	s.keys = append(s.keys, key)
	return nil
}

// calls 当前调用次数（断言用）
func (s *fakeItemService) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

type mileageCall struct {
	Op     string
	UserID uint
	Amount int64
	Key    string
}

type fakeMileageService struct {
	calls      []mileageCall
	consumeErr error
	refundErr  error
}

func (s *fakeMileageService) GetBalance(_ context.Context, _ uint) (*external.MileageInfo, error) {
	return &external.MileageInfo{}, nil
}

func (s *fakeMileageService) Consume(_ context.Context, userID uint, amount int64, _, key string) error {
	if s.consumeErr != nil {
		return s.consumeErr
	}
	s.calls = append(s.calls, mileageCall{Op: "consume", UserID: userID, Amount: amount, Key: key})
	return nil
}

func (s *fakeMileageService) Refund(_ context.Context, userID uint, amount int64, _, key string) error {
	if s.refundErr != nil {
		return s.refundErr
	}
	s.calls = append(s.calls, mileageCall{Op: "refund", UserID: userID, Amount: amount, Key: key})
	return nil
}

type memStore struct {
	nextID uint
	tasks  []*Task
}

func (s *memStore) Enqueue(_ context.Context, t *Task) error {
	s.nextID++
	t.ID = s.nextID
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *memStore) DuePending(_ context.Context, now time.Time, limit int) ([]*Task, error) {
	var out []*Task
	for _, t := range s.tasks {
		if t.Status == TaskPending && !t.NextRetryAt.After(now) {
			out = append(out, t)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) MarkDone(_ context.Context, id uint) error {
	for _, t := range s.tasks {
		if t.ID == id {
			t.Status = TaskDone
		}
	}
	return nil
}

func (s *memStore) Update(_ context.Context, task *Task) error {
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = task
		}
	}
	return nil
}

func TestExecutor(t *testing.T) {
	metrics.InitMetrics()

	t.Run("成功执行不入队", func(t *testing.T) {
		items := &fakeItemService{stock: map[uint]int{7: 2}}
		store := &memStore{}
		exec := NewExecutor(items, &fakeMileageService{}, store)

		err := exec.Execute(context.Background(), RestockTask(1, 11, 7, 3))
		require.NoError(t, err)

		assert.Equal(t, 5, items.stock[7])
		assert.Empty(t, store.tasks)
	})

	t.Run("失败时错误上抛且任务入队", func(t *testing.T) {
		items := &fakeItemService{stock: map[uint]int{}, adjustErr: assert.AnError}
		store := &memStore{}
		exec := NewExecutor(items, &fakeMileageService{}, store)

		err := exec.Execute(context.Background(), RestockTask(1, 11, 7, 3))
		assert.ErrorIs(t, err, assert.AnError)

		require.Len(t, store.tasks, 1)
		task := store.tasks[0]
		assert.Equal(t, TaskPending, task.Status)
		assert.Equal(t, 1, task.Attempts)
		assert.True(t, task.NextRetryAt.After(time.Now()), "首次重试应在未来")
	})

	t.Run("三种补偿类型各走对应远端", func(t *testing.T) {
		items := &fakeItemService{stock: map[uint]int{7: 0}}
		mileage := &fakeMileageService{}
		exec := NewExecutor(items, mileage, &memStore{})

		require.NoError(t, exec.Execute(context.Background(), RestockTask(1, 11, 7, 3)))
		require.NoError(t, exec.Execute(context.Background(), ConsumeTask(1, 42, 6000, "订单结算")))
		require.NoError(t, exec.Execute(context.Background(), RefundTask(1, 11, 42, 6000, "订单取消")))

		assert.Equal(t, 3, items.stock[7])
		require.Len(t, mileage.calls, 2)
		assert.Equal(t, "consume", mileage.calls[0].Op)
		assert.Equal(t, "refund", mileage.calls[1].Op)
	})
}

// TestIdempotencyKeys 幂等键只由(对象ID, 操作类型)决定，重复构造结果一致
func TestIdempotencyKeys(t *testing.T) {
	assert.Equal(t, DetailKey(11, KindRestock), RestockTask(1, 11, 7, 3).IdempotencyKey)
	assert.Equal(t, OrderKey(1, KindConsumeMileage), ConsumeTask(1, 42, 6000, "").IdempotencyKey)
	assert.Equal(t, DetailKey(11, KindRefundMileage), RefundTask(1, 11, 42, 6000, "").IdempotencyKey)

	assert.Equal(t, RestockTask(1, 11, 7, 3).IdempotencyKey, RestockTask(1, 11, 7, 99).IdempotencyKey)
	assert.NotEqual(t, DetailKey(11, KindRestock), DetailKey(11, KindRefundMileage))
	assert.NotEqual(t, DetailKey(11, KindRestock), DetailKey(12, KindRestock))
}

// TestRetryBackoff 指数退避，上限30分钟
func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, retryBackoff(1))
	assert.Equal(t, time.Minute, retryBackoff(2))
	assert.Equal(t, 2*time.Minute, retryBackoff(3))
	assert.Equal(t, 30*time.Minute, retryBackoff(10))
	assert.Equal(t, 30*time.Minute, retryBackoff(100))
}
