package dto

import (
	"github.com/dpang/order-server/internal/application/refund"
	"github.com/dpang/order-server/internal/domain/order"
)

// RefundOrderRequest HTTP退货请求
type RefundOrderRequest struct {
	Reason           string `json:"reason" binding:"required" example:"SIZE_NOT_MATCH"`
	Note             string `json:"note" binding:"max=500" example:"鞋码偏小一号"`
	RetrievalMessage string `json:"retrieval_message" binding:"max=200" example:"下午两点后上门"`
}

// RefundResponse HTTP退货记录响应
type RefundResponse struct {
	ID            uint            `json:"id" example:"1"`
	OrderDetailID uint            `json:"order_detail_id" example:"10"`
	Reason        string          `json:"reason" example:"SIZE_NOT_MATCH"`
	Note          string          `json:"note,omitempty" example:"鞋码偏小一号"`
	Status        string          `json:"status" example:"REFUND_REQUEST"`
	RefundAmount  int64           `json:"refund_amount" example:"3000"` // 不含配送费
	RequestedAt   string          `json:"requested_at" example:"2024-11-06 10:30:00"`
	CompletedAt   string          `json:"completed_at,omitempty" example:"2024-11-08 15:00:00"`
	Recall        *RecallResponse `json:"recall,omitempty"`
}

// RecallResponse 回收信息响应
type RecallResponse struct {
	RetrieverName        string `json:"retriever_name" example:"张三"`
	RetrieverPhoneNumber string `json:"retriever_phone_number" example:"010-1234-5678"`
	RetrieverAddress     string `json:"retriever_address" example:"(04524) 首尔特别市中区世宗大路110 3层301室"`
	RetrievalMessage     string `json:"retrieval_message,omitempty" example:"下午两点后上门"`
}

// NewRefundResponse 从退货记录构建响应
func NewRefundResponse(r *order.Refund) *RefundResponse {
	resp := &RefundResponse{
		ID:            r.ID,
		OrderDetailID: r.OrderDetailID,
		Reason:        r.Reason.String(),
		Note:          r.Note,
		Status:        r.Status.String(),
		RefundAmount:  r.RefundAmount,
		RequestedAt:   r.RequestedAt.Format(timeLayout),
	}
	if r.CompletedAt != nil {
		resp.CompletedAt = r.CompletedAt.Format(timeLayout)
	}
	if r.Recall != nil {
		resp.Recall = &RecallResponse{
			RetrieverName:        r.Recall.RetrieverName,
			RetrieverPhoneNumber: r.Recall.RetrieverPhoneNumber,
			RetrieverAddress:     r.Recall.RetrieverAddress,
			RetrievalMessage:     r.Recall.RetrievalMessage,
		}
	}
	return resp
}

// RefundViewResponse HTTP退货记录详情响应（含关联订单与富化数据）
type RefundViewResponse struct {
	Refund   *RefundResponse     `json:"refund"`
	OrderID  uint                `json:"order_id" example:"1"`
	UserID   uint                `json:"user_id" example:"42"`
	UserName string              `json:"user_name,omitempty" example:"张三"`
	Detail   OrderDetailResponse `json:"detail"`
}

// NewRefundViewResponse 从退货详情视图构建响应
func NewRefundViewResponse(v *refund.RefundView) *RefundViewResponse {
	resp := &RefundViewResponse{
		Refund:   NewRefundResponse(v.Refund),
		OrderID:  v.Order.ID,
		UserID:   v.Order.UserID,
		UserName: v.User.Name,
	}

	detail := NewOrderDetailResponse(v.Detail, nil)
	detail.ItemName = v.Item.Name
	resp.Detail = detail

	return resp
}

// ListRefundsRequest HTTP退货记录列表请求
type ListRefundsRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	UserID    uint   `form:"user_id" binding:"omitempty" example:"42"`
	Reason    string `form:"reason" binding:"omitempty" example:"SIZE_NOT_MATCH"`
	Status    string `form:"status" binding:"omitempty" example:"COLLECTING"`
	StartDate string `form:"start_date" binding:"omitempty" example:"2024-11-01"`
	EndDate   string `form:"end_date" binding:"omitempty" example:"2024-11-30"`
}

// ToQuery 转换为领域查询条件
func (r *ListRefundsRequest) ToQuery() (order.RefundQuery, bool) {
	q := order.RefundQuery{
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

	if r.Status != "" {
		status, ok := order.ParseRefundStatus(r.Status)
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

// RefundListItem HTTP退货记录列表项（富化明细与用户名）
type RefundListItem struct {
	RefundResponse
	OrderID  uint   `json:"order_id" example:"1"`
	ItemID   uint   `json:"item_id" example:"7"`
	ItemName string `json:"item_name,omitempty" example:"羊毛围巾"`
}
