package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investledger/internal/config"
	"investledger/internal/handler"
	"investledger/internal/infrastructure/cache"
	"investledger/internal/infrastructure/database"
	"investledger/internal/infrastructure/lock"
	"investledger/internal/infrastructure/mq"
	"investledger/internal/job"
	"investledger/internal/repository/mysql"
	"investledger/internal/service"
	"investledger/pkg/idgen"
	"investledger/pkg/metrics"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化 MySQL
	db := database.InitMySQL(&cfg.MySQL)

	// 初始化 Redis（分布式锁）
	redisClient := cache.InitRedis(&cfg.Redis)

	// 初始化 Kafka
	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	// 存储、锁与监控
	store := mysql.NewStore(db)
	locks := lock.NewRedisFactory(redisClient)
	collector := metrics.NewCollector()

	// 服务装配
	accrualService := service.NewAccrualService(store, locks, cfg, collector)
	commissionService := service.NewCommissionService(store, locks, cfg, collector)
	userService := service.NewUserService(store, locks, cfg)
	investmentService := service.NewInvestmentService(store, locks, cfg)
	depositService := service.NewDepositService(store, commissionService)
	withdrawService := service.NewWithdrawService(store, locks, cfg)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(store, cfg)
	go outboxSender.Start(ctx)

	accrualJob := job.NewAccrualJob(accrualService, cfg)
	go accrualJob.Start(ctx)

	// 设置路由
	h := handler.NewHandler(userService, investmentService, depositService, withdrawService, accrualService)
	router := handler.SetupRouter(h, collector)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}
