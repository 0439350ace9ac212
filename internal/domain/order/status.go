package order

// OrderStatus 订单明细的生命周期状态
//
// 教学要点：
// 1. 使用iota实现枚举，从1开始（0是Go零值，容易和"未设置"混淆）
// 2. 正向流转是严格的单向链：每次只能前进一步，不能跳步、不能回退
//   - 建模的是物理履约过程（已发出的包裹不会自己回到仓库）
//
// 3. CANCELLED是链外终态：只能从PAYMENT_COMPLETED进入（显式取消或退货），
//    进入后不可再流转
type OrderStatus int

const (
	StatusOrderReceived        OrderStatus = 1 // 订单接收
	StatusPaymentCompleted     OrderStatus = 2 // 支付完成
	StatusDeliveryRequested    OrderStatus = 3 // 配送申请
	StatusPreparingForDelivery OrderStatus = 4 // 配送准备中
	StatusInDelivery           OrderStatus = 5 // 配送中
	StatusDeliveryCompleted    OrderStatus = 6 // 配送完成
	StatusCancelled            OrderStatus = 7 // 已取消（终态）
)

// orderStatusNames 状态与外部名称的映射（API与存储都使用名称，不依赖枚举数值）
var orderStatusNames = map[OrderStatus]string{
	StatusOrderReceived:        "ORDER_RECEIVED",
	StatusPaymentCompleted:     "PAYMENT_COMPLETED",
	StatusDeliveryRequested:    "DELIVERY_REQUESTED",
	StatusPreparingForDelivery: "PREPARING_FOR_DELIVERY",
	StatusInDelivery:           "IN_DELIVERY",
	StatusDeliveryCompleted:    "DELIVERY_COMPLETED",
	StatusCancelled:            "CANCELLED",
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsValid 检查状态值是否合法
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// ParseOrderStatus 从外部名称解析状态
func ParseOrderStatus(name string) (OrderStatus, bool) {
	for s, n := range orderStatusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// orderForward 正向流转表：当前状态 → 唯一的下一个合法状态
//
// 教学要点：
// 为什么用显式流转表而不是比较枚举数值（ordinal+1）？
// 1. 合法流转集合不依赖枚举声明顺序，调整枚举不会悄悄改变状态机
// 2. 流转规则一目了然，表驱动测试可以穷举所有边
var orderForward = map[OrderStatus]OrderStatus{
	StatusOrderReceived:        StatusPaymentCompleted,
	StatusPaymentCompleted:     StatusDeliveryRequested,
	StatusDeliveryRequested:    StatusPreparingForDelivery,
	StatusPreparingForDelivery: StatusInDelivery,
	StatusInDelivery:           StatusDeliveryCompleted,
	// DELIVERY_COMPLETED和CANCELLED是终态，没有正向边
}

// CanTransitionTo 判断订单状态能否流转到目标状态
//
// 合法流转只有两类：
// 1. 正向流转表中的唯一下一步
// 2. PAYMENT_COMPLETED → CANCELLED（显式取消/退货的专用边）
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == StatusCancelled {
		return s == StatusPaymentCompleted
	}
	next, ok := orderForward[s]
	return ok && next == target
}

// ValidateOrderStatusChange 校验订单状态流转
//
// 注意："目标状态等于当前状态"是另一类错误（ErrAlreadyInRequestedStatus），
// 必须由调用方在调用本函数之前检查，本函数只判断流转本身是否合法
func ValidateOrderStatusChange(current, target OrderStatus) error {
	if !current.CanTransitionTo(target) {
		return ErrInvalidOrderStatusChange
	}
	return nil
}

// RefundStatus 退货流程状态
//
// 严格单向：REFUND_REQUEST → COLLECTING → REFUND_COMPLETE，不可跳步
type RefundStatus int

const (
	RefundStatusRequest    RefundStatus = 1 // 退货申请
	RefundStatusCollecting RefundStatus = 2 // 回收中（商品在返仓途中，尚未验收）
	RefundStatusComplete   RefundStatus = 3 // 退货完成（终态，触发补偿）
)

var refundStatusNames = map[RefundStatus]string{
	RefundStatusRequest:    "REFUND_REQUEST",
	RefundStatusCollecting: "COLLECTING",
	RefundStatusComplete:   "REFUND_COMPLETE",
}

func (s RefundStatus) String() string {
	if name, ok := refundStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s RefundStatus) IsValid() bool {
	_, ok := refundStatusNames[s]
	return ok
}

// ParseRefundStatus 从外部名称解析退货状态
func ParseRefundStatus(name string) (RefundStatus, bool) {
	for s, n := range refundStatusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// refundForward 退货状态的正向流转表
var refundForward = map[RefundStatus]RefundStatus{
	RefundStatusRequest:    RefundStatusCollecting,
	RefundStatusCollecting: RefundStatusComplete,
}

// CanTransitionTo 判断退货状态能否流转到目标状态
func (s RefundStatus) CanTransitionTo(target RefundStatus) bool {
	next, ok := refundForward[s]
	return ok && next == target
}

// ValidateRefundStatusChange 校验退货状态流转
// "已是请求状态"的检查同样由调用方负责
func ValidateRefundStatusChange(current, target RefundStatus) error {
	if !current.CanTransitionTo(target) {
		return ErrInvalidRefundStatusChange
	}
	return nil
}

// Reason 取消/退货事由（封闭集合）
type Reason int

const (
	ReasonSizeNotMatch      Reason = 1 // 尺寸不合适
	ReasonSimpleChange      Reason = 2 // 单纯变心
	ReasonProductDiscontent Reason = 3 // 对商品不满意
	ReasonDeliveryDelay     Reason = 4 // 配送延迟
	ReasonWrongDelivery     Reason = 5 // 错误配送
	ReasonOthers            Reason = 6 // 其他
)

var reasonNames = map[Reason]string{
	ReasonSizeNotMatch:      "SIZE_NOT_MATCH",
	ReasonSimpleChange:      "SIMPLE_CHANGE",
	ReasonProductDiscontent: "PRODUCT_DISCONTENT",
	ReasonDeliveryDelay:     "DELIVERY_DELAY",
	ReasonWrongDelivery:     "WRONG_DELIVERY",
	ReasonOthers:            "OTHERS",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

func (r Reason) IsValid() bool {
	_, ok := reasonNames[r]
	return ok
}

// ParseReason 从外部名称解析事由
func ParseReason(name string) (Reason, bool) {
	for r, n := range reasonNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}
