package handler

import (
	"github.com/gin-gonic/gin"

	appcancel "github.com/dpang/order-server/internal/application/cancel"
	"github.com/dpang/order-server/internal/domain/order"
	"github.com/dpang/order-server/internal/interface/http/dto"
	"github.com/dpang/order-server/pkg/metrics"
	"github.com/dpang/order-server/pkg/response"
)

// CancelHandler 订单取消HTTP处理器
type CancelHandler struct {
	cancelOrderUseCase *appcancel.CancelOrderUseCase
	getCancelUseCase   *appcancel.GetCancelUseCase
	listCancelsUseCase *appcancel.ListCancelsUseCase
}

// NewCancelHandler 创建取消处理器
func NewCancelHandler(
	cancelOrderUseCase *appcancel.CancelOrderUseCase,
	getCancelUseCase *appcancel.GetCancelUseCase,
	listCancelsUseCase *appcancel.ListCancelsUseCase,
) *CancelHandler {
	return &CancelHandler{
		cancelOrderUseCase: cancelOrderUseCase,
		getCancelUseCase:   getCancelUseCase,
		listCancelsUseCase: listCancelsUseCase,
	}
}

// CancelOrder 取消订单明细
// @Summary      取消订单明细
// @Description  按明细取消，仅PAYMENT_COMPLETED状态可取消；退还金额=明细小计+配送费
// @Tags         取消模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        detailId path int true "明细ID"
// @Param        request body dto.CancelOrderRequest true "取消事由"
// @Success      200 {object} response.Response{data=dto.CancelResponse} "取消成功"
// @Failure      400 {object} response.Response "当前状态不可取消"
// @Failure      404 {object} response.Response "订单/明细不存在"
// @Router       /orders/{orderId}/details/{detailId}/cancel [post]
//
// 教学说明：防双重取消
// 事务内先SELECT FOR UPDATE锁明细行再检查状态，
// 并发的两个取消请求只有先拿到锁的能通过状态检查，
// cancels表的order_detail_id唯一索引是最后一道防线
func (h *CancelHandler) CancelOrder(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}
	detailID, ok := uintParam(c, "detailId")
	if !ok {
		return
	}

	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}
	reason, ok := order.ParseReason(req.Reason)
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 未知的取消事由 "+req.Reason)
		return
	}

	cancel, err := h.cancelOrderUseCase.Execute(c.Request.Context(), orderID, detailID, reason)
	if err != nil {
		fail(c, err)
		return
	}

	metrics.IncCounter(metrics.CancelsTotal)
	response.Success(c, dto.NewCancelResponse(cancel))
}

// GetCancel 查询取消记录
// @Summary      查询取消记录
// @Tags         取消模块
// @Produce      json
// @Security     BearerAuth
// @Param        cancelId path int true "取消记录ID"
// @Success      200 {object} response.Response{data=dto.CancelViewResponse}
// @Failure      404 {object} response.Response "取消记录不存在"
// @Router       /cancels/{cancelId} [get]
func (h *CancelHandler) GetCancel(c *gin.Context) {
	cancelID, ok := uintParam(c, "cancelId")
	if !ok {
		return
	}

	view, err := h.getCancelUseCase.Execute(c.Request.Context(), cancelID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.NewCancelViewResponse(view))
}

// ListCancels 条件分页查询取消记录
// @Summary      取消记录列表
// @Tags         取消模块
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页大小"
// @Param        user_id query int false "用户ID"
// @Param        reason query string false "事由名（如SIMPLE_CHANGE）"
// @Param        start_date query string false "起始日期（2006-01-02）"
// @Param        end_date query string false "截止日期（含当天）"
// @Success      200 {object} response.Response{data=response.PageData}
// @Router       /cancels [get]
func (h *CancelHandler) ListCancels(c *gin.Context) {
	var req dto.ListCancelsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	q, ok := req.ToQuery()
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 事由名或日期格式非法")
		return
	}

	result, err := h.listCancelsUseCase.Execute(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]dto.CancelListItem, 0, len(result.Cancels))
	for _, cl := range result.Cancels {
		item := dto.CancelListItem{CancelResponse: *dto.NewCancelResponse(cl)}
		if detail, ok := result.Details[cl.OrderDetailID]; ok {
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
