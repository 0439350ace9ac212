package external

import "context"

// UserInfo 用户服务返回的用户信息
type UserInfo struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// UserService 用户身份服务契约（只读）
type UserService interface {
	GetUser(ctx context.Context, userID uint) (*UserInfo, error)

	// GetUsers 批量查询（列表富化用，一次往返）
	GetUsers(ctx context.Context, userIDs []uint) ([]UserInfo, error)
}
