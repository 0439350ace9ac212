package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appcancel "github.com/dpang/order-server/internal/application/cancel"
	"github.com/dpang/order-server/internal/application/compensation"
	"github.com/dpang/order-server/internal/application/enrich"
	apporder "github.com/dpang/order-server/internal/application/order"
	apprefund "github.com/dpang/order-server/internal/application/refund"
	"github.com/dpang/order-server/internal/infrastructure/client"
	"github.com/dpang/order-server/internal/infrastructure/config"
	"github.com/dpang/order-server/internal/infrastructure/persistence/mysql"
	"github.com/dpang/order-server/internal/infrastructure/persistence/redis"
	"github.com/dpang/order-server/internal/interface/http/handler"
	"github.com/dpang/order-server/internal/interface/http/middleware"
	"github.com/dpang/order-server/pkg/jwt"
	"github.com/dpang/order-server/pkg/metrics"
	"github.com/dpang/order-server/pkg/mq"
	"github.com/dpang/order-server/pkg/response"
	"github.com/dpang/order-server/pkg/tracing"
)

// main 主程序入口
// 说明：手动依赖注入，组装顺序自底向上
// Repository/Client → Executor/UseCase → Handler → Router
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())

	// 2. 初始化指标（/metrics端点依赖默认Registry）
	metrics.InitMetrics()

	// 3. 初始化链路追踪（可选）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.Service, cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatalf("初始化Tracer失败: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Printf("关闭Tracer失败: %v", err)
			}
		}()
		fmt.Printf("✓ 链路追踪已开启: %s\n", cfg.Tracing.Endpoint)
	}

	// 4. 初始化数据库连接
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 5. 初始化Redis连接
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 6. 初始化消息发布者
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		log.Fatalf("初始化消息发布者失败: %v", err)
	}
	defer publisher.Close()

	// 7. 依赖注入（手动组装）

	// 基础设施层
	orderRepo := mysql.NewOrderRepository(db)
	cancelRepo := mysql.NewCancelRepository(db)
	refundRepo := mysql.NewRefundRepository(db)
	compStore := mysql.NewCompensationStore(db)
	txManager := mysql.NewTxManager(db)
	orderCache := redis.NewOrderCache(redisClient, cfg.Redis.OrderTTL)

	itemClient := client.NewItemClient(cfg.Clients.ItemBaseURL, cfg.Clients.Timeout)
	mileageClient := client.NewMileageClient(cfg.Clients.MileageBaseURL, cfg.Clients.Timeout)
	userClient := client.NewUserClient(cfg.Clients.UserBaseURL, cfg.Clients.Timeout)

	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)

	// 补偿机制：同步执行器 + 后台重试Worker
	compExecutor := compensation.NewExecutor(itemClient, mileageClient, compStore)
	compWorker := compensation.NewWorker(
		compStore,
		compExecutor,
		cfg.Compensation.Interval,
		cfg.Compensation.BatchSize,
		cfg.Compensation.MaxAttempts,
	)
	compWorker.Start(ctx)

	// 应用层
	lookup := enrich.NewLookup(itemClient, userClient)

	placeOrderUseCase := apporder.NewPlaceOrderUseCase(orderRepo, txManager, itemClient, mileageClient, compExecutor, publisher)
	getOrderUseCase := apporder.NewGetOrderUseCase(orderRepo, lookup, orderCache)
	listOrdersUseCase := apporder.NewListOrdersUseCase(orderRepo, lookup)
	updateStatusUseCase := apporder.NewUpdateStatusUseCase(orderRepo, orderCache, publisher)
	updateRecipientUseCase := apporder.NewUpdateRecipientUseCase(orderRepo, orderCache)

	cancelOrderUseCase := appcancel.NewCancelOrderUseCase(orderRepo, cancelRepo, txManager, compExecutor, publisher, orderCache)
	getCancelUseCase := appcancel.NewGetCancelUseCase(cancelRepo, orderRepo, lookup)
	listCancelsUseCase := appcancel.NewListCancelsUseCase(cancelRepo, orderRepo, lookup)

	refundOrderUseCase := apprefund.NewRefundOrderUseCase(orderRepo, refundRepo, txManager, publisher, orderCache)
	getRefundUseCase := apprefund.NewGetRefundUseCase(refundRepo, orderRepo, lookup)
	listRefundsUseCase := apprefund.NewListRefundsUseCase(refundRepo, orderRepo, lookup)
	updateRefundStatusUseCase := apprefund.NewUpdateRefundStatusUseCase(refundRepo, orderRepo, txManager, compExecutor, publisher, orderCache)

	// 接口层
	orderHandler := handler.NewOrderHandler(
		placeOrderUseCase,
		getOrderUseCase,
		listOrdersUseCase,
		updateStatusUseCase,
		updateRecipientUseCase,
	)
	cancelHandler := handler.NewCancelHandler(cancelOrderUseCase, getCancelUseCase, listCancelsUseCase)
	refundHandler := handler.NewRefundHandler(refundOrderUseCase, getRefundUseCase, listRefundsUseCase, updateRefundStatusUseCase)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// 8. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.Metrics())

	// 9. 注册路由
	registerRoutes(r, orderHandler, cancelHandler, refundHandler, authMiddleware)

	// 10. 启动服务（优雅停止：收到信号后排空在途请求）
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		fmt.Printf("\n🚀 服务启动成功！\n")
		fmt.Printf("   访问地址: http://localhost%s\n", addr)
		fmt.Printf("   健康检查: http://localhost%s/ping\n", addr)
		fmt.Printf("   指标端点: http://localhost%s/metrics\n", addr)
		fmt.Printf("   下单接口: POST http://localhost%s/api/v1/orders (需要登录)\n", addr)
		fmt.Printf("\n按Ctrl+C停止服务\n\n")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	<-ctx.Done()
	fmt.Println("\n收到停止信号，开始优雅停止...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务停止异常: %v", err)
	}
	fmt.Println("服务已停止")
}

// registerRoutes 注册路由
//
// 权限划分：
// - 下单/查询/取消/退货申请：登录即可
// - 状态推进（订单/明细/退货）：运营后台（admin）
func registerRoutes(
	r *gin.Engine,
	orderHandler *handler.OrderHandler,
	cancelHandler *handler.CancelHandler,
	refundHandler *handler.RefundHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组（全部需要登录）
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		// 订单模块
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.PlaceOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:orderId", orderHandler.GetOrder)
			orders.PUT("/:orderId/recipient", orderHandler.UpdateRecipient)

			// 状态推进是物流侧动作，只开放给运营后台
			orders.PUT("/:orderId/status", authMiddleware.RequireAdmin(), orderHandler.UpdateOrderStatus)
			orders.PUT("/:orderId/details/:detailId/status", authMiddleware.RequireAdmin(), orderHandler.UpdateDetailStatus)

			// 取消与退货申请（按明细）
			orders.POST("/:orderId/details/:detailId/cancel", cancelHandler.CancelOrder)
			orders.POST("/:orderId/details/:detailId/refund", refundHandler.RefundOrder)
		}

		// 取消模块
		cancels := v1.Group("/cancels")
		{
			cancels.GET("", cancelHandler.ListCancels)
			cancels.GET("/:cancelId", cancelHandler.GetCancel)
		}

		// 退货模块
		refunds := v1.Group("/refunds")
		{
			refunds.GET("", refundHandler.ListRefunds)
			refunds.GET("/:refundId", refundHandler.GetRefund)
			refunds.PUT("/:refundId/status", authMiddleware.RequireAdmin(), refundHandler.UpdateRefundStatus)
		}
	}
}
