package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dpang/order-server/internal/domain/external"
	apperrors "github.com/dpang/order-server/pkg/errors"
)

// userClient 用户身份服务HTTP适配器（只读）
//
// 接口约定（用户服务侧）：
//
//	GET /api/v1/users/{id}          → UserInfo
//	GET /api/v1/users?ids=1,2,3     → []UserInfo
type userClient struct {
	*baseClient
}

// NewUserClient 创建用户服务客户端
func NewUserClient(baseURL string, timeout time.Duration) external.UserService {
	return &userClient{newBaseClient("user-service", baseURL, timeout)}
}

// GetUser 查询单个用户
func (c *userClient) GetUser(ctx context.Context, userID uint) (*external.UserInfo, error) {
	var info external.UserInfo
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", userID), nil, nil, &info)
	if err != nil {
		return nil, apperrors.Wrap(err, "查询用户失败")
	}
	return &info, nil
}

// GetUsers 批量查询用户
func (c *userClient) GetUsers(ctx context.Context, userIDs []uint) ([]external.UserInfo, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}

	var infos []external.UserInfo
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/users?ids="+strings.Join(ids, ","), nil, nil, &infos)
	if err != nil {
		return nil, apperrors.Wrap(err, "批量查询用户失败")
	}
	return infos, nil
}
