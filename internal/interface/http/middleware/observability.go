package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/dpang/order-server/pkg/metrics"
)

// RequestIDHeader 请求ID头（网关透传则复用，否则本服务生成）
const RequestIDHeader = "X-Request-ID"

// RequestID 请求ID中间件
// 每个请求分配一个唯一ID，写回响应头并注入Context，
// 排查问题时用它串起同一次请求的所有日志
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID 从Context获取请求ID
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get("request_id"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Tracing HTTP入口span中间件
// 每个请求开一个server span，span名用路由模板（同Metrics的基数考虑），
// 下游client span（见infrastructure/client）挂在它下面形成完整链路
func Tracing() gin.HandlerFunc {
	tracer := otel.Tracer("order-server/http")
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+path)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", path),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.String("request.id", GetRequestID(c)),
		)
		if c.Writer.Status() >= 500 {
			span.SetStatus(otelcodes.Error, "server error")
		}
	}
}

// Metrics HTTP指标采集中间件
// 采集三类指标：
// 1. 请求总数（method/path/status三个维度）
// 2. 请求耗时直方图（method/path两个维度）
// 3. 正在处理的请求数
//
// 注意：path用c.FullPath()（路由模板，如/api/v1/orders/:orderId），
// 不用c.Request.URL.Path（会把每个订单ID变成一个新标签值，标签基数爆炸）
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncGauge(metrics.HTTPRequestsInProgress)
		defer metrics.DecGauge(metrics.HTTPRequestsInProgress)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched" // 404等未命中路由的请求归到一起
		}

		metrics.IncCounterVec(metrics.HTTPRequestsTotal, map[string]string{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(c.Writer.Status()),
		})
		metrics.ObserveHistogramVec(metrics.HTTPRequestDuration, map[string]string{
			"method": c.Request.Method,
			"path":   path,
		}, time.Since(start).Seconds())
	}
}
