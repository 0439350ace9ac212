package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dpang/order-server/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Println("✓ 数据库连接成功")

	// 自动迁移表结构（开发环境）
	// 注意：生产环境应使用专门的迁移工具（如golang-migrate）
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&OrderModel{},
		&OrderDetailModel{},
		&OrderRecipientModel{},
		&CancelModel{},
		&RefundModel{},
		&RecallModel{},
		&CompensationTaskModel{},
	)
}

// OrderModel GORM订单模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/order/entity.go是领域实体，不依赖GORM
// 3. Repository负责两者之间的转换
type OrderModel struct {
	ID                   uint                 `gorm:"primaryKey"`
	UserID               uint                 `gorm:"index;not null;comment:下单用户ID"`
	Status               int                  `gorm:"index;type:tinyint;default:1;comment:订单状态"`
	DeliveryRequest      string               `gorm:"size:200;comment:配送要求"`
	ProductPaymentAmount int64                `gorm:"not null;comment:商品支付金额(分)"`
	DeliveryFee          int64                `gorm:"not null;comment:配送费(分)"`
	Details              []OrderDetailModel   `gorm:"foreignKey:OrderID"`
	Recipient            *OrderRecipientModel `gorm:"foreignKey:OrderID"`
	CreatedAt            time.Time            `gorm:"index;comment:创建时间"`
	UpdatedAt            time.Time            `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderDetailModel GORM订单明细模型
// 教学要点:
// 1. 记录下单时的单价快照(PurchasePrice字段)
// 2. 每条明细有独立的配送状态(Status)
// 3. Cancel/Refund是一对一关联，挂载后不再变更
type OrderDetailModel struct {
	ID            uint         `gorm:"primaryKey"`
	OrderID       uint         `gorm:"index;not null;comment:订单ID"`
	Status        int          `gorm:"index;type:tinyint;default:1;comment:明细状态"`
	ItemID        uint         `gorm:"index;not null;comment:商品ID(外部服务)"`
	PurchasePrice int64        `gorm:"not null;comment:下单时单价(分)"`
	Quantity      int          `gorm:"not null;comment:购买数量"`
	Cancel        *CancelModel `gorm:"foreignKey:OrderDetailID"`
	Refund        *RefundModel `gorm:"foreignKey:OrderDetailID"`
}

// TableName 指定表名
func (OrderDetailModel) TableName() string {
	return "order_details"
}

// OrderRecipientModel GORM收货人模型（订单1:1）
type OrderRecipientModel struct {
	OrderID       uint   `gorm:"primaryKey;autoIncrement:false;comment:订单ID"`
	Name          string `gorm:"size:50;not null;comment:收货人姓名"`
	PhoneNumber   string `gorm:"size:20;not null;comment:收货人电话"`
	ZipCode       string `gorm:"size:10;not null;comment:邮编"`
	Address       string `gorm:"size:200;not null;comment:地址"`
	DetailAddress string `gorm:"size:200;comment:详细地址"`
}

// TableName 指定表名
func (OrderRecipientModel) TableName() string {
	return "order_recipients"
}

// CancelModel GORM取消记录模型
// OrderDetailID唯一索引：每条明细最多取消一次（数据库层兜底）
type CancelModel struct {
	ID            uint       `gorm:"primaryKey"`
	OrderDetailID uint       `gorm:"uniqueIndex;not null;comment:订单明细ID"`
	Reason        string     `gorm:"size:30;not null;comment:取消原因"`
	RefundAmount  int64      `gorm:"not null;comment:退款金额(分)"`
	RequestedAt   time.Time  `gorm:"index;comment:申请时间"`
	CompletedAt   *time.Time `gorm:"comment:完成时间"`
}

// TableName 指定表名
func (CancelModel) TableName() string {
	return "cancels"
}

// RefundModel GORM退货记录模型
type RefundModel struct {
	ID            uint         `gorm:"primaryKey"`
	OrderDetailID uint         `gorm:"uniqueIndex;not null;comment:订单明细ID"`
	Reason        string       `gorm:"size:30;not null;comment:退货原因"`
	Note          string       `gorm:"size:500;comment:备注"`
	Status        int          `gorm:"index;type:tinyint;default:1;comment:退货状态"`
	RefundAmount  int64        `gorm:"not null;comment:退款金额(分)"`
	Recall        *RecallModel `gorm:"foreignKey:RefundID"`
	RequestedAt   time.Time    `gorm:"index;comment:申请时间"`
	CompletedAt   *time.Time   `gorm:"comment:完成时间"`
}

// TableName 指定表名
func (RefundModel) TableName() string {
	return "refunds"
}

// RecallModel GORM回收信息模型（退货1:1）
type RecallModel struct {
	ID                   uint   `gorm:"primaryKey"`
	RefundID             uint   `gorm:"uniqueIndex;not null;comment:退货ID"`
	RetrieverName        string `gorm:"size:50;not null;comment:回收联系人"`
	RetrieverPhoneNumber string `gorm:"size:20;not null;comment:回收联系电话"`
	RetrieverAddress     string `gorm:"size:400;not null;comment:回收地址"`
	RetrievalMessage     string `gorm:"size:200;comment:取件留言"`
}

// TableName 指定表名
func (RecallModel) TableName() string {
	return "recalls"
}

// CompensationTaskModel GORM补偿任务模型（远端调用失败的重试队列）
// 教学要点:
// 1. IdempotencyKey唯一索引：同一补偿动作只落一条任务
// 2. Status+NextRetryAt复合索引：后台扫描"到期待重试"走索引
type CompensationTaskModel struct {
	ID             uint      `gorm:"primaryKey"`
	Kind           string    `gorm:"size:30;not null;comment:补偿类型"`
	OrderID        uint      `gorm:"index;not null;comment:订单ID"`
	OrderDetailID  uint      `gorm:"comment:订单明细ID(订单级任务为0)"`
	UserID         uint      `gorm:"comment:用户ID"`
	ItemID         uint      `gorm:"comment:商品ID"`
	Quantity       int       `gorm:"comment:回补数量"`
	Amount         int64     `gorm:"comment:积分金额(分)"`
	Reason         string    `gorm:"size:50;comment:积分变动说明"`
	IdempotencyKey string    `gorm:"uniqueIndex;size:64;not null;comment:幂等键"`
	Attempts       int       `gorm:"not null;default:0;comment:已尝试次数"`
	Status         int       `gorm:"index:idx_due;type:tinyint;default:1;comment:任务状态(1待重试2完成3放弃)"`
	NextRetryAt    time.Time `gorm:"index:idx_due;comment:下次重试时间"`
	CreatedAt      time.Time `gorm:"comment:创建时间"`
	UpdatedAt      time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (CompensationTaskModel) TableName() string {
	return "compensation_tasks"
}
