package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"visionassist/common/logger"
	"visionassist/eyewear/internal/config"
	httpapi "visionassist/eyewear/internal/http"
	"visionassist/eyewear/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "eyewear")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting eyewear node",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("link_topic", cfg.Link.Topic),
		zap.Duration("tick", cfg.Control.Tick),
		zap.Duration("heartbeat", cfg.Link.Heartbeat),
	)

	// 创建服务
	eyewearService, err := service.NewEyewearService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create eyewear service", zap.Error(err))
	}

	var readings httpapi.ReadingLister
	if repo, ok := eyewearService.Readings(); ok {
		readings = repo
	}
	handler := httpapi.NewHandler(eyewearService.Controller(), readings, cfg.HTTP.StatusPush, zapLogger)
	server := service.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(handler), zapLogger)

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eyewearService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start eyewear service", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			zapLogger.Error("HTTP server failed", zap.Error(err))
		}
	}

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error stopping HTTP server", zap.Error(err))
	}
	cancel()
	if err := eyewearService.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Eyewear node stopped")
}
