package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// cancelRepository 取消记录仓储实现(MySQL)
type cancelRepository struct {
	db *gorm.DB
}

// NewCancelRepository 创建取消记录仓储
func NewCancelRepository(db *gorm.DB) order.CancelRepository {
	return &cancelRepository{db: db}
}

// Create 创建取消记录
// 教学要点:order_detail_id的唯一索引是双重取消的数据库层兜底,
// 行锁失效(如绕过用例直接写库)时由这里挡住第二条记录
func (r *cancelRepository) Create(ctx context.Context, c *order.Cancel) error {
	model := toCancelModel(c)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrUnableToCancel
		}
		return apperrors.Wrap(err, "创建取消记录失败")
	}

	c.ID = model.ID
	return nil
}

// FindByID 根据ID查找取消记录
func (r *cancelRepository) FindByID(ctx context.Context, id uint) (*order.Cancel, error) {
	var model CancelModel
	db := getDB(ctx, r.db)

	if err := db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrCancelNotFound
		}
		return nil, apperrors.Wrap(err, "查询取消记录失败")
	}

	return toCancelEntity(&model), nil
}

// Search 条件分页查询
// 按用户过滤时沿 cancels → order_details → orders 两级JOIN拿到下单人
func (r *cancelRepository) Search(ctx context.Context, q order.CancelQuery) ([]*order.Cancel, int64, error) {
	var models []CancelModel
	var total int64

	db := getDB(ctx, r.db)
	query := db.Model(&CancelModel{})

	if q.UserID != nil {
		query = query.
			Joins("JOIN order_details ON order_details.id = cancels.order_detail_id").
			Joins("JOIN orders ON orders.id = order_details.order_id").
			Where("orders.user_id = ?", *q.UserID)
	}
	if q.Reason != nil {
		query = query.Where("cancels.reason = ?", q.Reason.String())
	}
	if q.StartDate != nil {
		query = query.Where("cancels.requested_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		query = query.Where("cancels.requested_at < ?", *q.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询取消记录总数失败")
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
		Order("cancels.requested_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询取消记录列表失败")
	}

	cancels := make([]*order.Cancel, len(models))
	for i := range models {
		cancels[i] = toCancelEntity(&models[i])
	}
	return cancels, total, nil
}

// toCancelModel 领域实体 → GORM模型
func toCancelModel(c *order.Cancel) *CancelModel {
	return &CancelModel{
		ID:            c.ID,
		OrderDetailID: c.OrderDetailID,
		Reason:        c.Reason.String(),
		RefundAmount:  c.RefundAmount,
		RequestedAt:   c.RequestedAt,
		CompletedAt:   c.CompletedAt,
	}
}

// toCancelEntity GORM模型 → 领域实体
func toCancelEntity(model *CancelModel) *order.Cancel {
	reason, _ := order.ParseReason(model.Reason)
	return &order.Cancel{
		ID:            model.ID,
		OrderDetailID: model.OrderDetailID,
		Reason:        reason,
		RefundAmount:  model.RefundAmount,
		RequestedAt:   model.RequestedAt,
		CompletedAt:   model.CompletedAt,
	}
}
