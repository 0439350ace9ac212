package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	apporder "github.com/dpang/order-server/internal/application/order"
	"github.com/dpang/order-server/internal/domain/order"
	"github.com/dpang/order-server/internal/interface/http/dto"
	"github.com/dpang/order-server/internal/interface/http/middleware"
	"github.com/dpang/order-server/pkg/metrics"
	"github.com/dpang/order-server/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	placeOrderUseCase      *apporder.PlaceOrderUseCase
	getOrderUseCase        *apporder.GetOrderUseCase
	listOrdersUseCase      *apporder.ListOrdersUseCase
	updateStatusUseCase    *apporder.UpdateStatusUseCase
	updateRecipientUseCase *apporder.UpdateRecipientUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	placeOrderUseCase *apporder.PlaceOrderUseCase,
	getOrderUseCase *apporder.GetOrderUseCase,
	listOrdersUseCase *apporder.ListOrdersUseCase,
	updateStatusUseCase *apporder.UpdateStatusUseCase,
	updateRecipientUseCase *apporder.UpdateRecipientUseCase,
) *OrderHandler {
	return &OrderHandler{
		placeOrderUseCase:      placeOrderUseCase,
		getOrderUseCase:        getOrderUseCase,
		listOrdersUseCase:      listOrdersUseCase,
		updateStatusUseCase:    updateStatusUseCase,
		updateRecipientUseCase: updateRecipientUseCase,
	}
}

// PlaceOrder 下单
// @Summary      下单
// @Description  用积分结算的下单接口（需要登录）
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PlaceOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=dto.PlaceOrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Router       /orders [post]
//
// 教学说明：下单的结算链路
// 1. 批量查商品服务：校验商品存在、库存充足，取单价快照
// 2. 查积分服务：可用积分（基础+个人充值）必须覆盖 商品金额+配送费
// 3. 本地事务落单（ORDER_RECEIVED）
// 4. 远端扣库存、扣积分（带幂等键，积分失败进补偿任务表）
// 5. 状态推到PAYMENT_COMPLETED
// 任一前置校验失败都在落单之前拒绝，不产生任何写入
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	userID := middleware.MustGetUserID(c)

	items := make([]apporder.LineItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.LineItemInput{
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
		}
	}

	start := time.Now()
	o, err := h.placeOrderUseCase.Execute(c.Request.Context(), &apporder.PlaceOrderRequest{
		UserID:          userID,
		DeliveryRequest: req.DeliveryRequest,
		Recipient: apporder.RecipientInput{
			Name:          req.Recipient.Name,
			PhoneNumber:   req.Recipient.PhoneNumber,
			ZipCode:       req.Recipient.ZipCode,
			Address:       req.Recipient.Address,
			DetailAddress: req.Recipient.DetailAddress,
		},
		Items: items,
	})
	metrics.ObserveHistogram(metrics.OrderPlacementDuration, time.Since(start).Seconds())

	if err != nil {
		metrics.IncCounter(metrics.OrdersFailedTotal)
		fail(c, err)
		return
	}

	metrics.IncCounter(metrics.OrdersPlacedTotal)
	response.Success(c, dto.NewPlaceOrderResponse(o))
}

// GetOrder 查询订单详情
// @Summary      查询订单详情
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{orderId} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}

	view, err := h.getOrderUseCase.Execute(c.Request.Context(), orderID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, dto.NewOrderResponse(view.Order, view.Items, view.Users))
}

// ListOrders 条件分页查询订单
// @Summary      订单列表
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页大小"
// @Param        user_id query int false "用户ID"
// @Param        status query string false "状态名（如PAYMENT_COMPLETED）"
// @Param        start_date query string false "起始日期（2006-01-02）"
// @Param        end_date query string false "截止日期（含当天）"
// @Success      200 {object} response.Response{data=response.PageData}
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	// 普通用户只能看自己的订单；后台可按user_id任意过滤
	if !middleware.IsAdmin(c) {
		req.UserID = middleware.MustGetUserID(c)
	}

	q, ok := req.ToQuery()
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 状态名或日期格式非法")
		return
	}

	result, err := h.listOrdersUseCase.Execute(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	list := make([]*dto.OrderResponse, 0, len(result.Orders))
	for _, o := range result.Orders {
		list = append(list, dto.NewOrderResponse(o, result.Items, result.Users))
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	response.SuccessWithPage(c, list, result.Total, page, pageSize)
}

// UpdateOrderStatus 订单级状态推进（运营后台）
// @Summary      更新订单状态
// @Description  订单与全部未取消明细一起推进一步，不可跳步、不可回退
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response "非法流转/已处于该状态"
// @Router       /orders/{orderId}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}

	target, ok := bindTargetStatus(c)
	if !ok {
		return
	}

	if err := h.updateStatusUseCase.Execute(c.Request.Context(), orderID, target); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"order_id": orderID, "status": target.String()})
}

// UpdateDetailStatus 明细级状态推进（运营后台）
// @Summary      更新明细状态
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        detailId path int true "明细ID"
// @Param        request body dto.UpdateStatusRequest true "目标状态"
// @Success      200 {object} response.Response
// @Router       /orders/{orderId}/details/{detailId}/status [put]
func (h *OrderHandler) UpdateDetailStatus(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}
	detailID, ok := uintParam(c, "detailId")
	if !ok {
		return
	}

	target, ok := bindTargetStatus(c)
	if !ok {
		return
	}

	if err := h.updateStatusUseCase.ExecuteDetail(c.Request.Context(), orderID, detailID, target); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"order_detail_id": detailID, "status": target.String()})
}

// UpdateRecipient 更新收货人信息
// @Summary      更新收货人
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId path int true "订单ID"
// @Param        request body dto.UpdateRecipientRequest true "收货人信息"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{orderId}/recipient [put]
func (h *OrderHandler) UpdateRecipient(c *gin.Context) {
	orderID, ok := uintParam(c, "orderId")
	if !ok {
		return
	}

	var req dto.UpdateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	err := h.updateRecipientUseCase.Execute(c.Request.Context(), orderID, &apporder.RecipientInput{
		Name:          req.Name,
		PhoneNumber:   req.PhoneNumber,
		ZipCode:       req.ZipCode,
		Address:       req.Address,
		DetailAddress: req.DetailAddress,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"order_id": orderID})
}

// bindTargetStatus 绑定并解析目标订单状态，失败时已写出错误响应
func bindTargetStatus(c *gin.Context) (order.OrderStatus, bool) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return 0, false
	}
	status, ok := order.ParseOrderStatus(req.Status)
	if !ok {
		response.ErrorWithCode(c, 40900, "参数错误: 未知的状态名 "+req.Status)
		return 0, false
	}
	return status, true
}

// normalizePage 补齐分页默认值（与持久层Search保持一致）
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}
