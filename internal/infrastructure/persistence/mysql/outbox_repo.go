package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dpang/order-server/internal/application/compensation"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// compensationStore 补偿任务仓储实现(MySQL outbox)
// 教学要点:
// 1. 幂等键唯一索引让Enqueue天然去重:同一补偿动作重复入队只落一条
// 2. DuePending按(status, next_retry_at)复合索引扫描,不会全表扫
type compensationStore struct {
	db *gorm.DB
}

// NewCompensationStore 创建补偿任务仓储
func NewCompensationStore(db *gorm.DB) compensation.Store {
	return &compensationStore{db: db}
}

// Enqueue 记录一条失败的补偿任务
// 幂等键冲突说明同一动作已在队列中,按成功处理
func (s *compensationStore) Enqueue(ctx context.Context, t *compensation.Task) error {
	model := toTaskModel(t)

	db := getDB(ctx, s.db)
	if err := db.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return nil
		}
		return apperrors.Wrap(err, "记录补偿任务失败")
	}

	t.ID = model.ID
	return nil
}

// DuePending 取出到期待重试的任务
func (s *compensationStore) DuePending(ctx context.Context, now time.Time, limit int) ([]*compensation.Task, error) {
	var models []CompensationTaskModel

	db := getDB(ctx, s.db)
	err := db.
		Where("status = ? AND next_retry_at <= ?", int(compensation.TaskPending), now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询待重试补偿任务失败")
	}

	tasks := make([]*compensation.Task, len(models))
	for i := range models {
		tasks[i] = toTaskEntity(&models[i])
	}
	return tasks, nil
}

// MarkDone 标记任务成功
func (s *compensationStore) MarkDone(ctx context.Context, id uint) error {
	db := getDB(ctx, s.db)
	err := db.Model(&CompensationTaskModel{}).Where("id = ?", id).
		Update("status", int(compensation.TaskDone)).Error
	if err != nil {
		return apperrors.Wrap(err, "标记补偿任务完成失败")
	}
	return nil
}

// Update 回写重试进度
func (s *compensationStore) Update(ctx context.Context, t *compensation.Task) error {
	db := getDB(ctx, s.db)
	err := db.Model(&CompensationTaskModel{}).Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"attempts":      t.Attempts,
			"status":        int(t.Status),
			"next_retry_at": t.NextRetryAt,
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新补偿任务失败")
	}
	return nil
}

// toTaskModel 任务 → GORM模型
func toTaskModel(t *compensation.Task) *CompensationTaskModel {
	return &CompensationTaskModel{
		ID:             t.ID,
		Kind:           string(t.Kind),
		OrderID:        t.OrderID,
		OrderDetailID:  t.OrderDetailID,
		UserID:         t.UserID,
		ItemID:         t.ItemID,
		Quantity:       t.Quantity,
		Amount:         t.Amount,
		Reason:         t.Reason,
		IdempotencyKey: t.IdempotencyKey,
		Attempts:       t.Attempts,
		Status:         int(t.Status),
		NextRetryAt:    t.NextRetryAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// toTaskEntity GORM模型 → 任务
func toTaskEntity(model *CompensationTaskModel) *compensation.Task {
	return &compensation.Task{
		ID:             model.ID,
		Kind:           compensation.Kind(model.Kind),
		OrderID:        model.OrderID,
		OrderDetailID:  model.OrderDetailID,
		UserID:         model.UserID,
		ItemID:         model.ItemID,
		Quantity:       model.Quantity,
		Amount:         model.Amount,
		Reason:         model.Reason,
		IdempotencyKey: model.IdempotencyKey,
		Attempts:       model.Attempts,
		Status:         compensation.TaskStatus(model.Status),
		NextRetryAt:    model.NextRetryAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
