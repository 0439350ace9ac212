package dto

import (
	"time"

	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
)

// timeLayout API返回的时间格式
const timeLayout = "2006-01-02 15:04:05"

// dateLayout 查询参数的日期格式
const dateLayout = "2006-01-02"

// =========================================
// 下单
// =========================================

// PlaceOrderRequest HTTP下单请求
type PlaceOrderRequest struct {
	DeliveryRequest string                  `json:"delivery_request" binding:"max=200" example:"放在门口"`
	Recipient       RecipientRequest        `json:"recipient" binding:"required"`
	Items           []PlaceOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PlaceOrderItemRequest 订单明细项
type PlaceOrderItemRequest struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999"`
}

// RecipientRequest 收货人信息（下单与收货人更新共用）
type RecipientRequest struct {
	Name          string `json:"name" binding:"required,max=50" example:"张三"`
	PhoneNumber   string `json:"phone_number" binding:"required,max=20" example:"010-1234-5678"`
	ZipCode       string `json:"zip_code" binding:"required,max=10" example:"04524"`
	Address       string `json:"address" binding:"required,max=200" example:"首尔特别市中区世宗大路110"`
	DetailAddress string `json:"detail_address" binding:"max=200" example:"3层301室"`
}

// PlaceOrderResponse HTTP下单响应
type PlaceOrderResponse struct {
	OrderID       uint   `json:"order_id" example:"1"`
	Status        string `json:"status" example:"PAYMENT_COMPLETED"`
	ProductAmount int64  `json:"product_amount" example:"3000"` // 商品金额（分）
	DeliveryFee   int64  `json:"delivery_fee" example:"3000"`
	TotalDue      int64  `json:"total_due" example:"6000"` // 实际扣减的积分总额
	CreatedAt     string `json:"created_at" example:"2024-11-06 10:30:00"`
}

// NewPlaceOrderResponse 从订单聚合构建下单响应
func NewPlaceOrderResponse(o *order.Order) *PlaceOrderResponse {
	return &PlaceOrderResponse{
		OrderID:       o.ID,
		Status:        o.Status.String(),
		ProductAmount: o.ProductPaymentAmount,
		DeliveryFee:   o.DeliveryFee,
		TotalDue:      o.TotalDue(),
		CreatedAt:     o.CreatedAt.Format(timeLayout),
	}
}

// =========================================
// 订单查询
// =========================================

// OrderResponse HTTP订单详情响应
// Items/Users富化数据来自商品/用户服务，缺失时对应字段留空（服务降级不阻塞查询）
type OrderResponse struct {
	ID              uint                  `json:"id" example:"1"`
	UserID          uint                  `json:"user_id" example:"42"`
	UserName        string                `json:"user_name,omitempty" example:"张三"`
	Status          string                `json:"status" example:"PAYMENT_COMPLETED"`
	DeliveryRequest string                `json:"delivery_request,omitempty" example:"放在门口"`
	ProductAmount   int64                 `json:"product_amount" example:"3000"`
	DeliveryFee     int64                 `json:"delivery_fee" example:"3000"`
	TotalDue        int64                 `json:"total_due" example:"6000"`
	Recipient       *RecipientResponse    `json:"recipient,omitempty"`
	Details         []OrderDetailResponse `json:"details"`
	CreatedAt       string                `json:"created_at" example:"2024-11-06 10:30:00"`
	UpdatedAt       string                `json:"updated_at" example:"2024-11-06 10:30:00"`
}

// RecipientResponse 收货人信息响应
type RecipientResponse struct {
	Name          string `json:"name" example:"张三"`
	PhoneNumber   string `json:"phone_number" example:"010-1234-5678"`
	ZipCode       string `json:"zip_code" example:"04524"`
	Address       string `json:"address" example:"首尔特别市中区世宗大路110"`
	DetailAddress string `json:"detail_address,omitempty" example:"3层301室"`
}

// OrderDetailResponse 订单明细响应
type OrderDetailResponse struct {
	ID            uint   `json:"id" example:"10"`
	ItemID        uint   `json:"item_id" example:"7"`
	ItemName      string `json:"item_name,omitempty" example:"羊毛围巾"`
	Status        string `json:"status" example:"PAYMENT_COMPLETED"`
	PurchasePrice int64  `json:"purchase_price" example:"1000"` // 下单时单价（分）
	Quantity      int    `json:"quantity" example:"3"`
	LineAmount    int64  `json:"line_amount" example:"3000"`

	Cancel *CancelResponse `json:"cancel,omitempty"`
	Refund *RefundResponse `json:"refund,omitempty"`
}

// NewOrderResponse 从订单聚合与富化数据构建详情响应
func NewOrderResponse(o *order.Order, items map[uint]external.ItemInfo, users map[uint]external.UserInfo) *OrderResponse {
	resp := &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status.String(),
		DeliveryRequest: o.DeliveryRequest,
		ProductAmount:   o.ProductPaymentAmount,
		DeliveryFee:     o.DeliveryFee,
		TotalDue:        o.TotalDue(),
		Details:         make([]OrderDetailResponse, 0, len(o.Details)),
		CreatedAt:       o.CreatedAt.Format(timeLayout),
		UpdatedAt:       o.UpdatedAt.Format(timeLayout),
	}

	if u, ok := users[o.UserID]; ok {
		resp.UserName = u.Name
	}

	if o.Recipient != nil {
		resp.Recipient = &RecipientResponse{
			Name:          o.Recipient.Name,
			PhoneNumber:   o.Recipient.PhoneNumber,
			ZipCode:       o.Recipient.ZipCode,
			Address:       o.Recipient.Address,
			DetailAddress: o.Recipient.DetailAddress,
		}
	}

	for i := range o.Details {
		resp.Details = append(resp.Details, NewOrderDetailResponse(&o.Details[i], items))
	}

	return resp
}

// NewOrderDetailResponse 从明细实体构建明细响应
func NewOrderDetailResponse(d *order.OrderDetail, items map[uint]external.ItemInfo) OrderDetailResponse {
	resp := OrderDetailResponse{
		ID:            d.ID,
		ItemID:        d.ItemID,
		Status:        d.Status.String(),
		PurchasePrice: d.PurchasePrice,
		Quantity:      d.Quantity,
		LineAmount:    d.LineAmount(),
	}

	if item, ok := items[d.ItemID]; ok {
		resp.ItemName = item.Name
	}

	if d.Cancel != nil {
		resp.Cancel = NewCancelResponse(d.Cancel)
	}
	if d.Refund != nil {
		resp.Refund = NewRefundResponse(d.Refund)
	}

	return resp
}

// ListOrdersRequest HTTP订单列表请求
// 日期参数格式：2006-01-02（按天过滤，EndDate含当天）
type ListOrdersRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	UserID    uint   `form:"user_id" binding:"omitempty" example:"42"`
	Status    string `form:"status" binding:"omitempty" example:"PAYMENT_COMPLETED"`
	StartDate string `form:"start_date" binding:"omitempty" example:"2024-11-01"`
	EndDate   string `form:"end_date" binding:"omitempty" example:"2024-11-30"`
}

// ToQuery 转换为领域查询条件
// 状态名非法时返回false（调用方应返回参数错误）
func (r *ListOrdersRequest) ToQuery() (order.OrderQuery, bool) {
	q := order.OrderQuery{
		Page:     r.Page,
		PageSize: r.PageSize,
	}

	if r.UserID != 0 {
		uid := r.UserID
		q.UserID = &uid
	}

	if r.Status != "" {
		status, ok := order.ParseOrderStatus(r.Status)
		if !ok {
			return q, false
		}
		q.Status = &status
	}

	start, end, ok := parseDateRange(r.StartDate, r.EndDate)
	if !ok {
		return q, false
	}
	q.StartDate = start
	q.EndDate = end

	return q, true
}

// parseDateRange 解析日期区间
// EndDate含当天：加一天后由持久层做 < 比较，避免23:59:59.999的边界问题
func parseDateRange(startStr, endStr string) (*time.Time, *time.Time, bool) {
	var start, end *time.Time

	if startStr != "" {
		t, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return nil, nil, false
		}
		start = &t
	}

	if endStr != "" {
		t, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return nil, nil, false
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}

	return start, end, true
}

// ListOrdersResponse HTTP订单列表响应
type ListOrdersResponse struct {
	List  []OrderResponse `json:"list"`
	Total int64           `json:"total" example:"100"`
	Page  int             `json:"page" example:"1"`
	Size  int             `json:"size" example:"20"`
}

// =========================================
// 状态与收货人更新
// =========================================

// UpdateStatusRequest HTTP状态更新请求（订单级与明细级共用）
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"DELIVERY_REQUESTED"`
}

// UpdateRecipientRequest HTTP收货人更新请求
type UpdateRecipientRequest = RecipientRequest
