package external

import "context"

// MileageInfo 积分服务返回的余额信息
// 可用余额 = 基础积分 + 个人充值积分
type MileageInfo struct {
	Mileage                int64 `json:"mileage"`
	PersonalChargedMileage int64 `json:"personal_charged_mileage"`
}

// Available 可用积分总额
func (m *MileageInfo) Available() int64 {
	return m.Mileage + m.PersonalChargedMileage
}

// MileageService 积分服务契约
// 积分是本系统的支付货币：下单消费、取消/退货返还
type MileageService interface {
	// GetBalance 查询用户积分余额
	GetBalance(ctx context.Context, userID uint) (*MileageInfo, error)

	// Consume 消费积分（下单结算）
	Consume(ctx context.Context, userID uint, amount int64, reason, idempotencyKey string) error

	// Refund 返还积分（取消/退货补偿）
	Refund(ctx context.Context, userID uint, amount int64, reason, idempotencyKey string) error
}
