package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dpang/order-server/internal/domain/external"
	"github.com/dpang/order-server/internal/domain/order"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// mileageClient 积分服务HTTP适配器
//
// 接口约定（积分服务侧）：
//
//	GET  /api/v1/mileage/{userID}        → MileageInfo
//	POST /api/v1/mileage/consume         → 扣减积分
//	POST /api/v1/mileage/refund          → 返还积分
type mileageClient struct {
	*baseClient
}

// NewMileageClient 创建积分服务客户端
func NewMileageClient(baseURL string, timeout time.Duration) external.MileageService {
	return &mileageClient{newBaseClient("mileage-service", baseURL, timeout)}
}

// mileageMutation 积分变动请求体（消费/返还共用）
type mileageMutation struct {
	UserID uint   `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// GetBalance 查询用户积分余额
func (c *mileageClient) GetBalance(ctx context.Context, userID uint) (*external.MileageInfo, error) {
	var info external.MileageInfo
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/mileage/%d", userID), nil, nil, &info)
	if err != nil {
		return nil, apperrors.Wrap(err, "查询积分余额失败")
	}
	return &info, nil
}

// Consume 消费积分
func (c *mileageClient) Consume(ctx context.Context, userID uint, amount int64, reason, idempotencyKey string) error {
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/mileage/consume", headers,
		mileageMutation{UserID: userID, Amount: amount, Reason: reason}, nil)
	if err != nil {
		// 余额检查到扣减之间余额可能被并发消费掉
		if statusOf(err) == http.StatusConflict {
			return order.ErrInsufficientMileage
		}
		return apperrors.Wrap(err, "扣减积分失败")
	}
	return nil
}

// Refund 返还积分
func (c *mileageClient) Refund(ctx context.Context, userID uint, amount int64, reason, idempotencyKey string) error {
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/mileage/refund", headers,
		mileageMutation{UserID: userID, Amount: amount, Reason: reason}, nil)
	if err != nil {
		return apperrors.Wrap(err, "返还积分失败")
	}
	return nil
}
