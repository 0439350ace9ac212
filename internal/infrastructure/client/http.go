// Package client 下游服务的HTTP适配器（商品、积分、用户）
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dpang/order-server/pkg/circuitbreaker"
	apperrors "github.com/dpang/order-server/pkg/errors"
	"github.com/dpang/order-server/pkg/metrics"
)

// baseClient 下游HTTP调用的公共骨架
//
// 教学要点：
// 1. 每个下游一个熔断器：商品服务故障不应拖垮积分调用
// 2. 单次调用超时由context.WithTimeout兜底，慢调用不长期占用连接
// 3. 每次调用开一个span，链路上能看到跨服务耗时
type baseClient struct {
	name    string
	baseURL string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func newBaseClient(name, baseURL string, timeout time.Duration) *baseClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	cb := circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Printf("熔断器状态变化 %s: %s -> %s", name, from, to)
		metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
	})
	return &baseClient{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		timeout: timeout,
	}
}

// httpError 下游返回的非2xx响应
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("下游返回 %d: %s", e.StatusCode, e.Body)
}

// doJSON 发起一次JSON请求，2xx时把响应体解码到out（out为nil则丢弃）
func (c *baseClient) doJSON(ctx context.Context, method, path string, headers map[string]string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tracer := otel.Tracer("order-server/client")
	ctx, span := tracer.Start(ctx, c.name+" "+method+" "+path)
	defer span.End()
	span.SetAttributes(
		attribute.String("peer.service", c.name),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("请求体序列化失败: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	err = c.cb.Execute(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return &httpError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if err == circuitbreaker.ErrOpenState {
			metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": c.name, "result": "rejected"})
			return apperrors.ErrExternalService
		}
		metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": c.name, "result": "failure"})
		return err
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": c.name, "result": "success"})
	return nil
}

// statusOf 提取下游HTTP状态码，不是httpError时返回0
func statusOf(err error) int {
	if he, ok := err.(*httpError); ok {
		return he.StatusCode
	}
	return 0
}
