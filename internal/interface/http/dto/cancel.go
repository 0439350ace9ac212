package dto

import (
	"github.com/dpang/order-server/internal/application/cancel"
	"github.com/dpang/order-server/internal/domain/order"
)

// CancelOrderRequest HTTP取消请求
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required" example:"SIMPLE_CHANGE"`
}

// CancelResponse HTTP取消记录响应
type CancelResponse struct {
	ID            uint   `json:"id" example:"1"`
	OrderDetailID uint   `json:"order_detail_id" example:"10"`
	Reason        string `json:"reason" example:"SIMPLE_CHANGE"`
	RefundAmount  int64  `json:"refund_amount" example:"6000"` // 含配送费
	RequestedAt   string `json:"requested_at" example:"2024-11-06 10:30:00"`
	CompletedAt   string `json:"completed_at,omitempty" example:"2024-11-06 10:30:00"`
}

// NewCancelResponse 从取消记录构建响应
func NewCancelResponse(c *order.Cancel) *CancelResponse {
	resp := &CancelResponse{
		ID:            c.ID,
		OrderDetailID: c.OrderDetailID,
		Reason:        c.Reason.String(),
		RefundAmount:  c.RefundAmount,
		RequestedAt:   c.RequestedAt.Format(timeLayout),
	}
	if c.CompletedAt != nil {
		resp.CompletedAt = c.CompletedAt.Format(timeLayout)
	}
	return resp
}

// CancelViewResponse HTTP取消记录详情响应（含关联订单与富化数据）
type CancelViewResponse struct {
	Cancel   *CancelResponse     `json:"cancel"`
	OrderID  uint                `json:"order_id" example:"1"`
	UserID   uint                `json:"user_id" example:"42"`
	UserName string              `json:"user_name,omitempty" example:"张三"`
	Detail   OrderDetailResponse `json:"detail"`
}

// NewCancelViewResponse 从取消详情视图构建响应
func NewCancelViewResponse(v *cancel.CancelView) *CancelViewResponse {
	resp := &CancelViewResponse{
		Cancel:   NewCancelResponse(v.Cancel),
		OrderID:  v.Order.ID,
		UserID:   v.Order.UserID,
		UserName: v.User.Name,
	}

	detail := NewOrderDetailResponse(v.Detail, nil)
	detail.ItemName = v.Item.Name
	resp.Detail = detail

	return resp
}

// ListCancelsRequest HTTP取消记录列表请求
type ListCancelsRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	UserID    uint   `form:"user_id" binding:"omitempty" example:"42"`
	Reason    string `form:"reason" binding:"omitempty" example:"SIMPLE_CHANGE"`
	StartDate string `form:"start_date" binding:"omitempty" example:"2024-11-01"`
	EndDate   string `form:"end_date" binding:"omitempty" example:"2024-11-30"`
}

// ToQuery 转换为领域查询条件
func (r *ListCancelsRequest) ToQuery() (order.CancelQuery, bool) {
	q := order.CancelQuery{
		Page:     r.Page,
		PageSize: r.PageSize,
	}

	if r.UserID != 0 {
		uid := r.UserID
		q.UserID = &uid
	}

	if r.Reason != "" {
		reason, ok := order.ParseReason(r.Reason)
		if !ok {
			return q, false
		}
		q.Reason = &reason
	}

	start, end, ok := parseDateRange(r.StartDate, r.EndDate)
	if !ok {
		return q, false
	}
	q.StartDate = start
	q.EndDate = end

	return q, true
}

// CancelListItem HTTP取消记录列表项（富化明细与用户名）
type CancelListItem struct {
	CancelResponse
	OrderID  uint   `json:"order_id" example:"1"`
	ItemID   uint   `json:"item_id" example:"7"`
	ItemName string `json:"item_name,omitempty" example:"羊毛围巾"`
}
