package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// orderRepository 订单聚合仓储实现(MySQL)
// 教学要点:
// 1. Order、OrderDetail、OrderRecipient是聚合关系,创建时一起保存
// 2. 查询时使用Preload预加载明细及挂载的取消/退货记录,避免N+1问题
// 3. 事务通过context传递(getDB)
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM通过foreignKey级联保存明细与收货人,必须在事务中调用
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建订单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Details {
		o.Details[i].ID = model.Details[i].ID
		o.Details[i].OrderID = model.ID
	}
	if o.Recipient != nil {
		o.Recipient.OrderID = model.ID
	}

	return nil
}

// FindByID 根据ID查找完整聚合
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	db := getDB(ctx, r.db)

	err := db.
		Preload("Recipient").
		Preload("Details").
		Preload("Details.Cancel").
		Preload("Details.Refund").
		Preload("Details.Refund.Recall").
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}

	return toOrderEntity(&model), nil
}

// FindDetailByID 根据ID查找单条明细
func (r *orderRepository) FindDetailByID(ctx context.Context, detailID uint) (*order.OrderDetail, error) {
	var model OrderDetailModel
	db := getDB(ctx, r.db)

	err := db.
		Preload("Cancel").
		Preload("Refund").
		Preload("Refund.Recall").
		First(&model, detailID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderDetailNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单明细失败")
	}

	entity := toDetailEntity(&model)
	return &entity, nil
}

// LockDetailByID 行锁查询明细(SELECT ... FOR UPDATE)
// 教学要点:锁住明细行让并发取消/退货串行化,后到者会看到前者翻好的状态
func (r *orderRepository) LockDetailByID(ctx context.Context, detailID uint) (*order.OrderDetail, error) {
	var model OrderDetailModel
	db := getDB(ctx, r.db)

	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, detailID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderDetailNotFound
		}
		return nil, apperrors.Wrap(err, "锁定订单明细失败")
	}

	entity := toDetailEntity(&model)
	return &entity, nil
}

// FindDetailsByIDs 批量查询明细
func (r *orderRepository) FindDetailsByIDs(ctx context.Context, ids []uint) ([]order.OrderDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []OrderDetailModel
	db := getDB(ctx, r.db)

	err := db.
		Preload("Cancel").
		Preload("Refund").
		Preload("Refund.Recall").
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "批量查询订单明细失败")
	}

	details := make([]order.OrderDetail, len(models))
	for i := range models {
		details[i] = toDetailEntity(&models[i])
	}
	return details, nil
}

// UpdateStatus 更新订单状态(订单行与全部明细行一起翻转)
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uint, status order.OrderStatus) error {
	db := getDB(ctx, r.db)
	now := time.Now()

	result := db.Model(&OrderModel{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"status":     int(status),
		"updated_at": now,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}

	// 已取消的明细不跟随整单翻转
	err := db.Model(&OrderDetailModel{}).
		Where("order_id = ? AND status <> ?", orderID, int(order.StatusCancelled)).
		Update("status", int(status)).Error
	if err != nil {
		return apperrors.Wrap(err, "更新订单明细状态失败")
	}

	return nil
}

// UpdateDetailStatus 更新单条明细状态
func (r *orderRepository) UpdateDetailStatus(ctx context.Context, detailID uint, status order.OrderStatus) error {
	db := getDB(ctx, r.db)

	result := db.Model(&OrderDetailModel{}).Where("id = ?", detailID).
		Update("status", int(status))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单明细状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderDetailNotFound
	}
	return nil
}

// UpdateRecipient 整体替换收货人信息
func (r *orderRepository) UpdateRecipient(ctx context.Context, orderID uint, recipient *order.OrderRecipient) error {
	db := getDB(ctx, r.db)

	model := OrderRecipientModel{
		OrderID:       orderID,
		Name:          recipient.Name,
		PhoneNumber:   recipient.PhoneNumber,
		ZipCode:       recipient.ZipCode,
		Address:       recipient.Address,
		DetailAddress: recipient.DetailAddress,
	}

	// 以订单ID为主键的1:1行,存在则整行覆盖
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return apperrors.Wrap(err, "更新收货人信息失败")
	}
	return nil
}

// Search 条件分页查询
func (r *orderRepository) Search(ctx context.Context, q order.OrderQuery) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	db := getDB(ctx, r.db)
	query := db.Model(&OrderModel{})

	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", int(*q.Status))
	}
	if q.StartDate != nil {
		query = query.Where("created_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		query = query.Where("created_at < ?", *q.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
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
		Preload("Recipient").
		Preload("Details").
		Preload("Details.Cancel").
		Preload("Details.Refund").
		Preload("Details.Refund.Recall").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	details := make([]OrderDetailModel, len(o.Details))
	for i, d := range o.Details {
		details[i] = OrderDetailModel{
			ID:            d.ID,
			OrderID:       d.OrderID,
			Status:        int(d.Status),
			ItemID:        d.ItemID,
			PurchasePrice: d.PurchasePrice,
			Quantity:      d.Quantity,
		}
	}

	model := &OrderModel{
		ID:                   o.ID,
		UserID:               o.UserID,
		Status:               int(o.Status),
		DeliveryRequest:      o.DeliveryRequest,
		ProductPaymentAmount: o.ProductPaymentAmount,
		DeliveryFee:          o.DeliveryFee,
		Details:              details,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if o.Recipient != nil {
		model.Recipient = &OrderRecipientModel{
			OrderID:       o.ID,
			Name:          o.Recipient.Name,
			PhoneNumber:   o.Recipient.PhoneNumber,
			ZipCode:       o.Recipient.ZipCode,
			Address:       o.Recipient.Address,
			DetailAddress: o.Recipient.DetailAddress,
		}
	}
	return model
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	details := make([]order.OrderDetail, len(model.Details))
	for i := range model.Details {
		details[i] = toDetailEntity(&model.Details[i])
	}

	o := &order.Order{
		ID:                   model.ID,
		UserID:               model.UserID,
		Status:               order.OrderStatus(model.Status),
		DeliveryRequest:      model.DeliveryRequest,
		ProductPaymentAmount: model.ProductPaymentAmount,
		DeliveryFee:          model.DeliveryFee,
		Details:              details,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
	if model.Recipient != nil {
		o.Recipient = &order.OrderRecipient{
			OrderID:       model.Recipient.OrderID,
			Name:          model.Recipient.Name,
			PhoneNumber:   model.Recipient.PhoneNumber,
			ZipCode:       model.Recipient.ZipCode,
			Address:       model.Recipient.Address,
			DetailAddress: model.Recipient.DetailAddress,
		}
	}
	return o
}

// toDetailEntity GORM明细模型 → 领域实体(含挂载的取消/退货记录)
func toDetailEntity(model *OrderDetailModel) order.OrderDetail {
	d := order.OrderDetail{
		ID:            model.ID,
		OrderID:       model.OrderID,
		Status:        order.OrderStatus(model.Status),
		ItemID:        model.ItemID,
		PurchasePrice: model.PurchasePrice,
		Quantity:      model.Quantity,
	}
	if model.Cancel != nil {
		d.Cancel = toCancelEntity(model.Cancel)
	}
	if model.Refund != nil {
		d.Refund = toRefundEntity(model.Refund)
	}
	return d
}
