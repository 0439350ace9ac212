package compensation

import (
	"context"
	"log"
	"time"

	"github.com/dpang/order-server/pkg/metrics"
)

// Worker 后台重试器：周期性取出到期的补偿任务并重放
//
// 教学要点：
// 1. 重放使用任务里保存的原始幂等键，远程服务按键去重，
//    所以"执行成功但回写失败再重放"也不会重复生效
// 2. 超过最大重试次数的任务标记ABANDONED，等待人工对账，
//    不做无限重试（避免把故障服务打死）
type Worker struct {
	store       Store
	executor    *Executor
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewWorker 创建重试Worker
func NewWorker(store Store, executor *Executor, interval time.Duration, batchSize, maxAttempts int) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		store:       store,
		executor:    executor,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Start 启动重试循环，ctx取消时退出
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 执行一轮重试（独立出来便于测试）
func (w *Worker) RunOnce(ctx context.Context) {
	tasks, err := w.store.DuePending(ctx, time.Now(), w.batchSize)
	if err != nil {
		log.Printf("拉取补偿任务失败: %v", err)
		return
	}

	for _, t := range tasks {
		metrics.IncCounter(metrics.CompensationRetriesTotal)
		if err := w.executor.run(ctx, t); err != nil {
			t.Attempts++
			if t.Attempts >= w.maxAttempts {
				t.Status = TaskAbandoned
				metrics.IncCounter(metrics.CompensationAbandonedTotal)
				log.Printf("补偿任务超过最大重试次数，标记放弃。key=%s attempts=%d", t.IdempotencyKey, t.Attempts)
			} else {
				t.NextRetryAt = time.Now().Add(retryBackoff(t.Attempts))
			}
			if updateErr := w.store.Update(ctx, t); updateErr != nil {
				log.Printf("回写补偿任务失败。key=%s err=%v", t.IdempotencyKey, updateErr)
			}
			continue
		}

		if err := w.store.MarkDone(ctx, t.ID); err != nil {
			// 标记失败会导致下一轮重放，幂等键保证重放无害
			log.Printf("标记补偿任务完成失败。key=%s err=%v", t.IdempotencyKey, err)
		}
	}
}
