package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// refundRepository 退货记录仓储实现(MySQL)
type refundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退货记录仓储
func NewRefundRepository(db *gorm.DB) order.RefundRepository {
	return &refundRepository{db: db}
}

// Create 创建退货记录(级联保存回收信息)
func (r *refundRepository) Create(ctx context.Context, rf *order.Refund) error {
	model := toRefundModel(rf)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrUnableToRefund
		}
		return apperrors.Wrap(err, "创建退货记录失败")
	}

	rf.ID = model.ID
	if rf.Recall != nil && model.Recall != nil {
		rf.Recall.ID = model.Recall.ID
		rf.Recall.RefundID = model.ID
	}
	return nil
}

// FindByID 根据ID查找退货记录
func (r *refundRepository) FindByID(ctx context.Context, id uint) (*order.Refund, error) {
	var model RefundModel
	db := getDB(ctx, r.db)

	if err := db.Preload("Recall").First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrRefundNotFound
		}
		return nil, apperrors.Wrap(err, "查询退货记录失败")
	}

	return toRefundEntity(&model), nil
}

// UpdateStatus 更新退货状态,completedAt仅在进入终态时写入
func (r *refundRepository) UpdateStatus(ctx context.Context, refundID uint, status order.RefundStatus, completedAt *time.Time) error {
	db := getDB(ctx, r.db)

	updates := map[string]interface{}{
		"status": int(status),
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	result := db.Model(&RefundModel{}).Where("id = ?", refundID).Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新退货状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrRefundNotFound
	}
	return nil
}

// Search 条件分页查询
func (r *refundRepository) Search(ctx context.Context, q order.RefundQuery) ([]*order.Refund, int64, error) {
	var models []RefundModel
	var total int64

	db := getDB(ctx, r.db)
	query := db.Model(&RefundModel{})

	if q.UserID != nil {
		query = query.
			Joins("JOIN order_details ON order_details.id = refunds.order_detail_id").
			Joins("JOIN orders ON orders.id = order_details.order_id").
			Where("orders.user_id = ?", *q.UserID)
	}
	if q.Reason != nil {
		query = query.Where("refunds.reason = ?", q.Reason.String())
	}
	if q.Status != nil {
		query = query.Where("refunds.status = ?", int(*q.Status))
	}
	if q.StartDate != nil {
		query = query.Where("refunds.requested_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		query = query.Where("refunds.requested_at < ?", *q.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询退货记录总数失败")
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	err := query.
		Preload("Recall").
		Order("refunds.requested_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询退货记录列表失败")
	}

	refunds := make([]*order.Refund, len(models))
	for i := range models {
		refunds[i] = toRefundEntity(&models[i])
	}
	return refunds, total, nil
}

// toRefundModel 领域实体 → GORM模型
func toRefundModel(rf *order.Refund) *RefundModel {
	model := &RefundModel{
		ID:            rf.ID,
		OrderDetailID: rf.OrderDetailID,
		Reason:        rf.Reason.String(),
		Note:          rf.Note,
		Status:        int(rf.Status),
		RefundAmount:  rf.RefundAmount,
		RequestedAt:   rf.RequestedAt,
		CompletedAt:   rf.CompletedAt,
	}
	if rf.Recall != nil {
		model.Recall = &RecallModel{
			ID:                   rf.Recall.ID,
			RefundID:             rf.ID,
			RetrieverName:        rf.Recall.RetrieverName,
			RetrieverPhoneNumber: rf.Recall.RetrieverPhoneNumber,
			RetrieverAddress:     rf.Recall.RetrieverAddress,
			RetrievalMessage:     rf.Recall.RetrievalMessage,
		}
	}
	return model
}

// toRefundEntity GORM模型 → 领域实体
func toRefundEntity(model *RefundModel) *order.Refund {
	reason, _ := order.ParseReason(model.Reason)
	rf := &order.Refund{
		ID:            model.ID,
		OrderDetailID: model.OrderDetailID,
		Reason:        reason,
		Note:          model.Note,
		Status:        order.RefundStatus(model.Status),
		RefundAmount:  model.RefundAmount,
		RequestedAt:   model.RequestedAt,
		CompletedAt:   model.CompletedAt,
	}
	if model.Recall != nil {
		rf.Recall = &order.Recall{
			ID:                   model.Recall.ID,
			RefundID:             model.Recall.RefundID,
			RetrieverName:        model.Recall.RetrieverName,
			RetrieverPhoneNumber: model.Recall.RetrieverPhoneNumber,
			RetrieverAddress:     model.Recall.RetrieverAddress,
			RetrievalMessage:     model.Recall.RetrievalMessage,
		}
	}
	return rf
}
