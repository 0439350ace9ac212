package order

import "errors"

// 领域层错误定义
//
// 教学要点：
// 1. 错误是业务规则的一部分，集中定义在domain层，
//    应用层和基础设施层都可以引用，避免循环依赖
// 2. 使用errors.New定义哨兵错误，调用方用errors.Is判断，
//    HTTP层再统一翻译为错误码（见interface/http/handler）
// 3. 三个错误族：
//   - NotFound族：实体查找未命中（404语义）
//   - Precondition族：请求的流转违反状态机（400语义）
//   - Resource族：下单前置资源不足（400语义）
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("订单不存在")

	// ErrOrderDetailNotFound 订单明细不存在（含不属于指定订单的明细）
	ErrOrderDetailNotFound = errors.New("订单明细不存在")

	// ErrCancelNotFound 取消记录不存在
	ErrCancelNotFound = errors.New("取消记录不存在")

	// ErrRefundNotFound 退货记录不存在
	ErrRefundNotFound = errors.New("退货记录不存在")

	// ErrProductNotFound 商品不存在
	// 场景：下单时商品服务无法解析请求的商品ID
	ErrProductNotFound = errors.New("商品不存在")

	// ErrUnableToCancel 订单不可取消
	// 场景：明细状态不是PAYMENT_COMPLETED（已进入配送流程，或已取消过）
	ErrUnableToCancel = errors.New("当前状态不可取消")

	// ErrUnableToRefund 订单不可退货
	// 场景：明细状态不是DELIVERY_COMPLETED（尚未送达，或已取消过）
	ErrUnableToRefund = errors.New("当前状态不可退货")

	// ErrInvalidOrderStatusChange 非法的订单状态流转
	// 场景：跳步（ORDER_RECEIVED直接到IN_DELIVERY）或回退
	ErrInvalidOrderStatusChange = errors.New("非法的订单状态变更")

	// ErrInvalidRefundStatusChange 非法的退货状态流转
	ErrInvalidRefundStatusChange = errors.New("非法的退货状态变更")

	// ErrAlreadyInRequestedStatus 已处于请求的状态
	// 注意：这不是流转校验失败，而是调用方在校验前就要拦截的独立错误
	ErrAlreadyInRequestedStatus = errors.New("已处于请求的状态")

	// ErrInsufficientStock 库存不足
	// 场景：下单时请求数量超过商品服务返回的可用库存
	ErrInsufficientStock = errors.New("商品库存不足")

	// ErrInsufficientMileage 积分不足
	// 场景：用户可用积分（基础+个人充值）低于应付总额
	ErrInsufficientMileage = errors.New("积分余额不足")
)

// IsNotFound 判断是否为"未找到"类错误（HTTP层映射404语义）
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderDetailNotFound) ||
		errors.Is(err, ErrCancelNotFound) ||
		errors.Is(err, ErrRefundNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsBusinessError 判断是否为业务规则错误（而非系统错误）
// 业务错误直接返回给调用方提示；系统错误记日志并返回通用提示
func IsBusinessError(err error) bool {
	businessErrors := []error{
		ErrUnableToCancel,
		ErrUnableToRefund,
		ErrInvalidOrderStatusChange,
		ErrInvalidRefundStatusChange,
		ErrAlreadyInRequestedStatus,
		ErrInsufficientStock,
		ErrInsufficientMileage,
	}

	for _, e := range businessErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
