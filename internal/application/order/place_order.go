package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// PlaceOrderUseCase 下单用例
//
// 教学要点：
// 1. 先做只读校验（商品存在、库存充足、积分够付），全部通过后才落库
// 2. 本地事务只负责写入订单聚合（ORDER_RECEIVED）
// 3. 事务提交后再调远端：扣库存、扣积分，最后把状态翻到 PAYMENT_COMPLETED
//    —— 不把远端调用放进数据库事务里（远端慢调用会把行锁拖很久）
// 4. 远端调用携带幂等键，失败的扣积分/退积分会进补偿任务表由后台重试
type PlaceOrderUseCase struct {
	orderRepo order.Repository
	txManager TxManager
	items     external.ItemService
	mileage   external.MileageService
	comp      *compensation.Executor
	events    EventPublisher
}

// NewPlaceOrderUseCase 创建下单用例
func NewPlaceOrderUseCase(
	orderRepo order.Repository,
	txManager TxManager,
	items external.ItemService,
	mileage external.MileageService,
	comp *compensation.Executor,
	events EventPublisher,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		orderRepo: orderRepo,
		txManager: txManager,
		items:     items,
		mileage:   mileage,
		comp:      comp,
		events:    events,
	}
}

// LineItemInput 下单行项
type LineItemInput struct {
	ItemID   uint
	Quantity int
}

// RecipientInput 收货人信息
type RecipientInput struct {
	Name          string
	PhoneNumber   string
	ZipCode       string
	Address       string
	DetailAddress string
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	UserID          uint
	DeliveryRequest string
	Recipient       RecipientInput
	Items           []LineItemInput
}

// OrderPlacedEvent 下单完成事件
type OrderPlacedEvent struct {
	OrderID     uint  `json:"order_id"`
	UserID      uint  `json:"user_id"`
	TotalAmount int64 `json:"total_amount"`
}

// Execute 执行下单
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, req *PlaceOrderRequest) (*order.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("订单至少包含一个商品")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("商品 %d 数量必须为正", line.ItemID)
		}
	}

	// 批量查商品：一次往返拿到全部单价与库存
	itemIDs := make([]uint, 0, len(req.Items))
	for _, line := range req.Items {
		itemIDs = append(itemIDs, line.ItemID)
	}
	infos, err := uc.items.GetItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("查询商品信息失败: %w", err)
	}
	infoByID := make(map[uint]external.ItemInfo, len(infos))
	for _, info := range infos {
		infoByID[info.ID] = info
	}

	var productTotal int64
	for _, line := range req.Items {
		info, ok := infoByID[line.ItemID]
		if !ok {
			return nil, order.ErrProductNotFound
		}
		if info.Quantity < line.Quantity {
			return nil, order.ErrInsufficientStock
		}
		productTotal += info.Price * int64(line.Quantity)
	}
	totalDue := productTotal + order.DeliveryFee

	// 积分余额预检：不足直接拒单，不产生任何写入
	balance, err := uc.mileage.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询积分余额失败: %w", err)
	}
	if balance.Available() < totalDue {
		return nil, order.ErrInsufficientMileage
	}

	now := time.Now()
	o := &order.Order{
		UserID:               req.UserID,
		Status:               order.StatusOrderReceived,
		DeliveryRequest:      req.DeliveryRequest,
		ProductPaymentAmount: productTotal,
		DeliveryFee:          order.DeliveryFee,
		CreatedAt:            now,
		UpdatedAt:            now,
		Recipient: &order.OrderRecipient{
			Name:          req.Recipient.Name,
			PhoneNumber:   req.Recipient.PhoneNumber,
			ZipCode:       req.Recipient.ZipCode,
			Address:       req.Recipient.Address,
			DetailAddress: req.Recipient.DetailAddress,
		},
	}
	for _, line := range req.Items {
		info := infoByID[line.ItemID]
		o.Details = append(o.Details, order.OrderDetail{
			Status:        order.StatusOrderReceived,
			ItemID:        line.ItemID,
			PurchasePrice: info.Price,
			Quantity:      line.Quantity,
		})
	}

	if err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		return uc.orderRepo.Create(txCtx, o)
	}); err != nil {
		return nil, fmt.Errorf("保存订单失败: %w", err)
	}

	// 远端扣减：库存与积分都带幂等键，重复投递不会二次扣减
	adjustments := make([]external.StockAdjustment, 0, len(req.Items))
	for _, line := range req.Items {
		adjustments = append(adjustments, external.StockAdjustment{
			ItemID: line.ItemID,
			Delta:  -line.Quantity,
		})
	}
	stockKey := fmt.Sprintf("order:%d:DECREMENT_STOCK", o.ID)
	if err := uc.items.AdjustStock(ctx, adjustments, stockKey); err != nil {
		return nil, fmt.Errorf("扣减库存失败: %w", err)
	}

	if err := uc.comp.Execute(ctx, compensation.ConsumeTask(o.ID, req.UserID, totalDue, "订单结算")); err != nil {
		return nil, fmt.Errorf("扣减积分失败: %w", err)
	}

	if err := uc.orderRepo.UpdateStatus(ctx, o.ID, order.StatusPaymentCompleted); err != nil {
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}
	o.Status = order.StatusPaymentCompleted
	for i := range o.Details {
		o.Details[i].Status = order.StatusPaymentCompleted
	}

	if err := uc.events.Publish(ctx, "order.placed", OrderPlacedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: totalDue,
	}); err != nil {
		log.Printf("发布下单事件失败 order_id=%d: %v", o.ID, err)
	}

	return o, nil
}
