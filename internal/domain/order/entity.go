package order

import (
	"time"
)

// DeliveryFee 固定配送费（单位：分）
// 设计说明：当前版本配送费为固定值，没有满减/会员折扣逻辑
// 下单时快照到Order.DeliveryFee字段，后续费用调整不影响历史订单
const DeliveryFee int64 = 3000

// Order 订单聚合根
//
// 教学要点：
// 1. 订单是聚合根（Aggregate Root），管理OrderDetail集合和收货人信息
// 2. 金额存分（int64）而非元（float64）：避免浮点数精度问题
// 3. ProductPaymentAmount是下单时的快照：
//   - 等于所有明细的 purchasePrice × quantity 之和
//   - 部分明细取消后不会重算（审计需要原始金额）
type Order struct {
	ID                   uint        `json:"id"`
	UserID               uint        `json:"user_id"`
	Status               OrderStatus `json:"status"`
	DeliveryRequest      string      `json:"delivery_request"` // 配送要求（如"放在门口"）
	ProductPaymentAmount int64       `json:"product_payment_amount"`
	DeliveryFee          int64       `json:"delivery_fee"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`

	// Recipient 收货人信息（1:1，订单创建后仅能通过显式更新操作修改）
	Recipient *OrderRecipient `json:"recipient,omitempty"`

	// Details 订单明细（1:N，聚合内实体，每条明细有独立的配送状态）
	Details []OrderDetail `json:"details,omitempty"`
}

// TotalDue 订单应付总额 = 商品金额 + 配送费
func (o *Order) TotalDue() int64 {
	return o.ProductPaymentAmount + o.DeliveryFee
}

// DetailByID 在聚合内查找指定明细
// 教学要点：明细必须通过所属订单定位（聚合边界），
// 跨订单直接查明细会绕过归属校验
func (o *Order) DetailByID(detailID uint) *OrderDetail {
	for i := range o.Details {
		if o.Details[i].ID == detailID {
			return &o.Details[i]
		}
	}
	return nil
}

// OrderDetail 订单明细
//
// 设计说明：
// 1. PurchasePrice是下单时的单价快照，商品后续改价不影响历史订单
// 2. ItemID是商品服务的外部标识，本服务不持有商品表
// 3. Cancel/Refund最多只能挂载其一，挂载后状态必为CANCELLED
type OrderDetail struct {
	ID            uint        `json:"id"`
	OrderID       uint        `json:"order_id"`
	Status        OrderStatus `json:"status"`
	ItemID        uint        `json:"item_id"`
	PurchasePrice int64       `json:"purchase_price"` // 下单时单价（分）
	Quantity      int         `json:"quantity"`

	Cancel *Cancel `json:"cancel,omitempty"`
	Refund *Refund `json:"refund,omitempty"`
}

// LineAmount 明细小计 = 单价 × 数量
func (d *OrderDetail) LineAmount() int64 {
	return d.PurchasePrice * int64(d.Quantity)
}

// AssignCancel 为明细挂载取消记录
// 教学要点：原型里的双向关联在这里是显式的两处字段更新，
// 由仓储在同一次持久化写入中原子落库
func (d *OrderDetail) AssignCancel(c *Cancel) {
	c.OrderDetailID = d.ID
	d.Cancel = c
}

// AssignRefund 为明细挂载退货记录
func (d *OrderDetail) AssignRefund(r *Refund) {
	r.OrderDetailID = d.ID
	d.Refund = r
}

// OrderRecipient 收货人信息（以订单ID为主键，1:1）
type OrderRecipient struct {
	OrderID       uint   `json:"order_id"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
	ZipCode       string `json:"zip_code"`
	Address       string `json:"address"`
	DetailAddress string `json:"detail_address"`
}

// FullAddress 拼接完整收货地址，格式："(邮编) 地址 详细地址"
// 退货回收地址按此格式从收货人信息派生
func (r *OrderRecipient) FullAddress() string {
	return "(" + r.ZipCode + ") " + r.Address + " " + r.DetailAddress
}

// Cancel 取消记录
//
// 设计说明：
// 1. 每条明细最多创建一次，创建后除完成时间外不再变更（审计记录）
// 2. RefundAmount是取消时点的快照 = 明细小计 + 订单配送费
//   - 部分明细取消也退全额配送费，见DESIGN.md的策略决定
type Cancel struct {
	ID            uint       `json:"id"`
	OrderDetailID uint       `json:"order_detail_id"`
	Reason        Reason     `json:"reason"`
	RefundAmount  int64      `json:"refund_amount"`
	RequestedAt   time.Time  `json:"requested_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Refund 退货（退货退款）记录
//
// 设计说明：
// 1. 仅能通过状态流转操作变更（REFUND_REQUEST → COLLECTING → REFUND_COMPLETE）
// 2. RefundAmount = 明细小计，不含配送费（策略决定，见DESIGN.md）
// 3. Recall与Refund同时创建、级联持久化，之后不再单独变更
type Refund struct {
	ID            uint         `json:"id"`
	OrderDetailID uint         `json:"order_detail_id"`
	Reason        Reason       `json:"reason"`
	Note          string       `json:"note"` // 备注（自由文本）
	Status        RefundStatus `json:"status"`
	RefundAmount  int64        `json:"refund_amount"`
	RequestedAt   time.Time    `json:"requested_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`

	Recall *Recall `json:"recall,omitempty"`
}

// AssignRecall 为退货记录挂载回收信息
func (r *Refund) AssignRecall(rc *Recall) {
	rc.RefundID = r.ID
	r.Recall = rc
}

// Recall 回收信息（上门取件）
// 回收人与地址在退货请求时点从订单收货人派生
type Recall struct {
	ID                   uint   `json:"id"`
	RefundID             uint   `json:"refund_id"`
	RetrieverName        string `json:"retriever_name"`
	RetrieverPhoneNumber string `json:"retriever_phone_number"`
	RetrieverAddress     string `json:"retriever_address"`
	RetrievalMessage     string `json:"retrieval_message"` // 取件留言
}
