// Package metrics 提供基于Prometheus的指标收集框架
//
// # 什么是Metrics（指标）？
//
// Metrics是可观测性三支柱之一（Tracing、Metrics、Logging）：
// - **Tracing（追踪）**: 回答"为什么慢？"
// - **Metrics（指标）**: 回答"有多少？多快？"（本模块）
// - **Logging（日志）**: 回答"发生了什么？"
//
// # 核心概念
//
// **1. Counter（计数器）**：只增不减的累计值
//   - 示例：HTTP请求总数、订单总数、错误总数
//
// **2. Gauge（仪表盘）**：可增可减的瞬时值
//   - 示例：正在处理的请求数、goroutine数量
//
// **3. Histogram（直方图）**：观测值的分布
//   - 示例：HTTP请求耗时、下单耗时
//   - 特点：自动计算分位数（P50、P90、P99）
//
// # DO/DON'T对比
//
// ❌ DON'T: 手动记录日志统计（无法聚合、查询困难）
//
//	func PlaceOrder() {
//	    start := time.Now()
//	    // ... 业务逻辑 ...
//	    log.Printf("下单耗时: %v", time.Since(start)) // ❌ 无法查询P99耗时
//	}
//
// ✅ DO: 使用Prometheus指标
//
//	func PlaceOrder() {
//	    start := time.Now()
//	    // ... 业务逻辑 ...
//	    metrics.ObserveHistogram(metrics.OrderPlacementDuration, time.Since(start).Seconds())
//	    metrics.IncCounter(metrics.OrdersPlacedTotal)
//	}
//
// # 常见指标命名规范
//
// 1. **Counter**: 以`_total`结尾（orders_placed_total）
// 2. **Histogram**: 以单位结尾（http_request_duration_seconds）
// 3. **Gauge**: 使用现在时态（http_requests_in_progress）
//
// # 最佳实践
//
// 1. 使用标签（Label）区分不同维度（method、path、status）
// 2. 避免高基数标签：不要用order_id/user_id作为标签（百万级别）
// 3. 合理设置Histogram桶：HTTP耗时 0.001~10秒覆盖大部分场景
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method（GET/POST）、path（/api/v1/orders）、status（200/500）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数（Gauge）
	HTTPRequestsInProgress prometheus.Gauge

	// 订单业务指标

	// OrdersPlacedTotal 下单成功总数（Counter）
	OrdersPlacedTotal prometheus.Counter

	// OrdersFailedTotal 下单失败总数（Counter）
	OrdersFailedTotal prometheus.Counter

	// OrderPlacementDuration 下单耗时（Histogram）
	OrderPlacementDuration prometheus.Histogram

	// CancelsTotal 取消成功总数（Counter）
	CancelsTotal prometheus.Counter

	// RefundsCompletedTotal 退货完成总数（Counter）
	RefundsCompletedTotal prometheus.Counter

	// 补偿任务指标

	// CompensationExecutionsTotal 补偿执行总数（Counter）
	// 标签：kind（RESTOCK/CONSUME_MILEAGE/REFUND_MILEAGE）、result（success/failure）
	CompensationExecutionsTotal *prometheus.CounterVec

	// CompensationRetriesTotal 补偿后台重试总数（Counter）
	CompensationRetriesTotal prometheus.Counter

	// CompensationAbandonedTotal 超过最大重试次数被放弃的补偿任务数（Counter）
	// 该值增长意味着需要人工对账
	CompensationAbandonedTotal prometheus.Counter

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数（Counter）
	// 标签：name（熔断器名称）、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数（Counter）
	// 标签：exchange（交换机）、routing_key（路由键）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
//
// 必须在程序启动时调用一次，用于注册所有指标到全局Registry
//
// 设计要点：
// 1. 使用promauto.New*自动注册到默认Registry
// 2. Counter使用*Vec支持标签（多维度统计）
// 3. Histogram的Buckets根据业务场景定制
func InitMetrics() {
	// 防止重复初始化
	if initialized {
		return
	}
	initialized = true

	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP请求耗时（秒）",
			// 桶设置：1ms、10ms、100ms、500ms、1s、5s、10s
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	// 订单业务指标
	OrdersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "下单成功总数",
		},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "下单失败总数",
		},
	)

	OrderPlacementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "order_placement_duration_seconds",
			Help: "下单耗时（秒）",
			// 下单链路涉及多个下游调用，桶放宽到10秒
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	CancelsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_cancels_total",
			Help: "取消成功总数",
		},
	)

	RefundsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refunds_completed_total",
			Help: "退货完成总数",
		},
	)

	// 补偿任务指标
	CompensationExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_executions_total",
			Help: "补偿执行总数",
		},
		[]string{"kind", "result"},
	)

	CompensationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_retries_total",
			Help: "补偿后台重试总数",
		},
	)

	CompensationAbandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_abandoned_total",
			Help: "被放弃等待人工对账的补偿任务数",
		},
	)

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	// 消息队列指标
	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key"},
	)
}

// IncCounter 递增Counter（便捷函数）
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGauge 设置Gauge值
func SetGauge(gauge prometheus.Gauge, value float64) {
	gauge.Set(value)
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
