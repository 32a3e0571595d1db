package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/common"
	"github.com/reportyao/luckymart-tj-sub011/common/logger"
	"github.com/reportyao/luckymart-tj-sub011/internal/config"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	infrds "github.com/reportyao/luckymart-tj-sub011/internal/infra/redis"
	"github.com/reportyao/luckymart-tj-sub011/internal/worker"
	_ "github.com/reportyao/luckymart-tj-sub011/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置：Nacos -> etcd -> 本地文件
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新（仅 Nacos 来源支持）
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if newCfg != nil && newCfg.Server.LogLevel != "" {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)

	// Redis（可选）
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 2*time.Second); err != nil {
		logger.Warn("redis ping failed (degraded mode)", zap.Error(err))
	}

	// 后台任务：Outbox 分发、MQ 入站、开奖扫描兜底
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)
	worker.StartDrawSweeper(ctx, &wg)

	// Prometheus 指标端口（与业务端口分离）
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9100", mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	// 优雅退出
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		fmt.Println("shutting down...")
		cancel()
		wg.Wait()
		logger.Sync()
		os.Exit(0)
	}()

	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}
	beego.BConfig.CopyRequestBody = true

	logger.Info("server starting", zap.Int("port", beego.BConfig.Listen.HTTPPort))
	beego.Run()
}
