package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"visionassist/common/link"
	mqttcommon "visionassist/common/mqtt"
	"visionassist/handband/internal/config"
	"visionassist/handband/internal/vibration"
)

// HandbandService 手环端服务
type HandbandService struct {
	config    *config.Config
	logger    *zap.Logger
	transport link.Transport
	node      *Node

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandbandService 创建手环端服务
func NewHandbandService(cfg *config.Config, logger *zap.Logger) (*HandbandService, error) {
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}
	transport := link.NewMQTTTransport(mqttClient, &cfg.Link)

	return newHandbandService(cfg, transport, vibration.NewLogActuator(logger), logger), nil
}

func newHandbandService(cfg *config.Config, transport link.Transport, actuator vibration.Actuator, logger *zap.Logger) *HandbandService {
	return &HandbandService{
		config:    cfg,
		logger:    logger,
		transport: transport,
		node:      NewNode(transport, actuator, cfg.Control.Tick, cfg.Link.Timeout, time.Now(), logger),
	}
}

// Start 自检后开始接收
func (s *HandbandService) Start(ctx context.Context) error {
	s.logger.Info("Starting handband service components")

	s.node.SelfTest(ctx, s.config.Control.SelfTest)
	// 超时从自检结束开始计算
	s.node.ResetLink(time.Now())

	if err := s.node.Listen(); err != nil {
		return fmt.Errorf("failed to listen on link: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.node.Run(runCtx)
	}()

	s.logger.Info("Handband service started successfully, waiting for eyewear",
		zap.String("link_topic", s.config.Link.Topic),
		zap.Duration("link_timeout", s.config.Link.Timeout),
	)
	return nil
}

// Stop 停止服务
func (s *HandbandService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping handband service")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for handband loop")
	}

	s.transport.Close()
	s.logger.Info("Handband service stopped")
	return nil
}
