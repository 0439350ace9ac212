package handler

import (
	"github.com/gin-gonic/gin"

	apprefund "github.com/dpang/order-server/internal/application/refund"
	"github.com/dpang/order-server/internal/domain/order"
	"github.com/dpang/order-server/internal/interface/http/dto"
	"github.com/dpang/order-server/pkg/metrics"
	"github.com/dpang/order-server/pkg/response"
)

// RefundHandler 退货HTTP处理器
type RefundHandler struct {
	refundOrderUseCase        *apprefund.RefundOrderUseCase
	getRefundUseCase          *apprefund.GetRefundUseCase
	listRefundsUseCase        *apprefund.ListRefundsUseCase
	updateRefundStatusUseCase *apprefund.UpdateRefundStatusUseCase
}

// NewRefundHandler 创建退货处理器
func NewRefundHandler(
	refundOrderUseCase *apprefund.RefundOrderUseCase,
	getRefundUseCase *apprefund.GetRefundUseCase,
	listRefundsUseCase *apprefund.ListRefundsUseCase,
	updateRefundStatusUseCase *apprefund.UpdateRefundStatusUseCase,
) *RefundHandler {
	return &RefundHandler{
		refundOrderUseCase:        refundOrderUseCase,
		getRefundUseCase:          getRefundUseCase,
		listRefundsUseCase:        listRefundsUseCase,
		updateRefundStatusUseCase: updateRefundStatusUseCase,
	}
}

// RefundOrder 申请退货
// @Summary      申请退货
// @Description  按明细申请退货，仅DELIVERY_COMPLETED状态可申请；回收地址从订单收货人派生
// @Tags         退货模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        detailId path int true "明细ID"
// @Param        request body dto.RefundOrderRequest true "退货事由"
// @Success      200 {object} response.Response{data=dto.RefundResponse} "申请成功"
// @Failure      400 {object} response.Response "当前状态不可退货"
// @Failure      404 {object} response.Response "订单/明细不存在"
// @Router       /orders/{orderId}/details/{detailId}/refund [post]
//
// 教学说明：申请时点没有资金动作
// 退货申请只冻结明细（状态置CANCELLED）并生成回收单，
// 回补库存和返还积分要等验收完成、状态推到REFUND_COMPLETE才发生
func (h *RefundHandler) RefundOrder(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}
	detailID, ok := uintParam(c, "detailId")
	if !ok {
		return
	}

	var req dto.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}
	reason, ok := order.ParseReason(req.Reason)
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 未知的退货事由 "+req.Reason)
		return
	}

	refund, err := h.refundOrderUseCase.Execute(c.Request.Context(), &apprefund.RefundRequest{
		OrderID:          orderID,
		OrderDetailID:    detailID,
		Reason:           reason,
		Note:             req.Note,
		RetrievalMessage: req.RetrievalMessage,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.NewRefundResponse(refund))
}

// GetRefund 查询退货记录
// @Summary      查询退货记录
// @Tags         退货模块
// @Produce      json
// @Security     BearerAuth
// @Param        refundId path int true "退货记录ID"
// @Success      200 {object} response.Response{data=dto.RefundViewResponse}
// @Failure      404 {object} response.Response "退货记录不存在"
// @Router       /refunds/{refundId} [get]
func (h *RefundHandler) GetRefund(c *gin.Context) {
	refundID, ok := uintParam(c, "refundId")
	if !ok {
		return
	}

	view, err := h.getRefundUseCase.Execute(c.Request.Context(), refundID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.NewRefundViewResponse(view))
}

// ListRefunds 条件分页查询退货记录
// @Summary      退货记录列表
// @Tags         退货模块
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页大小"
// @Param        user_id query int false "用户ID"
// @Param        reason query string false "事由名（如SIZE_NOT_MATCH）"
// @Param        status query string false "退货状态名（如COLLECTING）"
// @Param        start_date query string false "起始日期（2006-01-02）"
// @Param        end_date query string false "截止日期（含当天）"
// @Success      200 {object} response.Response{data=response.PageData}
// @Router       /refunds [get]
func (h *RefundHandler) ListRefunds(c *gin.Context) {
	var req dto.ListRefundsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	q, ok := req.ToQuery()
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 事由名、状态名或日期格式非法")
		return
	}

	result, err := h.listRefundsUseCase.Execute(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]dto.RefundListItem, 0, len(result.Refunds))
	for _, r := range result.Refunds {
		item := dto.RefundListItem{RefundResponse: *dto.NewRefundResponse(r)}
		if detail, ok := result.Details[r.OrderDetailID]; ok {
			item.OrderID = detail.OrderID
			item.ItemID = detail.ItemID
			if info, ok := result.Items[detail.ItemID]; ok {
				item.ItemName = info.Name
			}
		}
		list = append(list, item)
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	response.SuccessWithPage(c, list, result.Total, page, pageSize)
}

// UpdateRefundStatus 退货状态流转（运营后台）
// @Summary      更新退货状态
// @Description  REFUND_REQUEST → COLLECTING → REFUND_COMPLETE严格单向推进；
// @Description  进入REFUND_COMPLETE时回补库存、返还积分（恰好一次）
// @Tags         退货模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        refundId path int true "退货记录ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "非法流转/已处于该状态"
// @Router       /refunds/{refundId}/status [put]
func (h *RefundHandler) UpdateRefundStatus(c *gin.Context) {
	refundID, ok := uintParam(c, "refundId")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}
	target, ok := order.ParseRefundStatus(req.Status)
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 未知的退货状态名 "+req.Status)
		return
	}

	if err := h.updateRefundStatusUseCase.Execute(c.Request.Context(), refundID, target); err != nil {
		fail(c, err)
		return
	}

	if target == order.RefundStatusComplete {
		metrics.IncCounter(metrics.RefundsCompletedTotal)
	}

	response.Success(c, gin.H{"refund_id": refundID, "status": target.String()})
}
