package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"visionassist/common/database"
	"visionassist/common/link"
	mqttcommon "visionassist/common/mqtt"
	rediscommon "visionassist/common/redis"
	"visionassist/eyewear/internal/config"
	"visionassist/eyewear/internal/device"
	"visionassist/eyewear/internal/events"
	"visionassist/eyewear/internal/ocr"
	"visionassist/eyewear/internal/repository"
)

// EyewearService 眼镜端服务
type EyewearService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	transport  link.Transport
	publisher  *events.Publisher
	readings   *repository.ReadingRepository
	touch      *device.SignalTouch
	controller *Controller

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewEyewearService 创建眼镜端服务
func NewEyewearService(cfg *config.Config, logger *zap.Logger) (*EyewearService, error) {
	s := &EyewearService{
		config: cfg,
		logger: logger,
	}

	// 识别历史（可选）
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		s.readings = repository.NewReadingRepository(db, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.readings.EnsureSchema(ctx)
		cancel()
		if err != nil {
			s.close()
			return nil, err
		}
	}

	// 事件流（可选）
	var sink events.Sink = events.Nop{}
	if cfg.Redis.Enabled {
		s.redis = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(context.Background(), s.redis); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.publisher = events.NewPublisher(s.redis, cfg.Events.Stream, cfg.Events.MaxLen, cfg.Events.Buffer, logger)
		sink = s.publisher
	}

	// 无线链路
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}
	s.mqttClient = mqttClient
	s.transport = link.NewMQTTTransport(mqttClient, &cfg.Link)

	devices, err := s.newDevices()
	if err != nil {
		s.close()
		return nil, err
	}

	recognizer := ocr.NewVisionClient(cfg.Vision.BaseURL, cfg.Vision.Path, cfg.Vision.APIKey, cfg.Vision.Timeout, logger)
	sender := link.NewSender(s.transport, cfg.Link.Heartbeat, logger)

	var history ReadingStore
	if s.readings != nil {
		history = s.readings
	}
	s.controller = NewController(cfg, devices, recognizer, sender, sink, history, logger)

	return s, nil
}

func (s *EyewearService) newDevices() (Devices, error) {
	script, err := device.ParseScript(s.config.Device.RangerScript)
	if err != nil {
		return Devices{}, fmt.Errorf("failed to load ranger script: %w", err)
	}

	devices := Devices{
		Ranger: device.NewScriptedRanger(script),
		Camera: device.NewFileCamera(s.config.Device.FramePath),
		Touch:  device.IdleTouch{},
	}
	if s.config.Device.Touch == "signal" {
		s.touch = device.NewSignalTouch(s.logger)
		devices.Touch = s.touch
	}
	return devices, nil
}

// Controller 控制循环（供界面 API 使用）
func (s *EyewearService) Controller() *Controller {
	return s.controller
}

// Readings 识别历史仓库，未启用时返回 false
func (s *EyewearService) Readings() (*repository.ReadingRepository, bool) {
	return s.readings, s.readings != nil
}

// Start 启动控制循环和后台任务
func (s *EyewearService) Start(ctx context.Context) error {
	s.logger.Info("Starting eyewear service components")

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error {
		return s.controller.Run(groupCtx)
	})
	if s.publisher != nil {
		group.Go(func() error {
			return s.publisher.Run(groupCtx)
		})
	}
	if s.touch != nil {
		group.Go(func() error {
			return s.touch.Run(groupCtx)
		})
	}

	s.logger.Info("Eyewear service started successfully",
		zap.String("link_topic", s.config.Link.Topic),
		zap.Bool("events", s.publisher != nil),
		zap.Bool("history", s.readings != nil),
	)
	return nil
}

// Stop 停止服务
func (s *EyewearService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping eyewear service")

	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		if err := s.group.Wait(); err != nil {
			s.logger.Error("Error stopping components", zap.Error(err))
		}
	}

	s.close()
	s.logger.Info("Eyewear service stopped")
	return nil
}

func (s *EyewearService) close() {
	// 链路关闭时一并断开 MQTT
	if s.transport != nil {
		s.transport.Close()
	} else if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redis != nil {
		rediscommon.Close(s.redis)
	}
	if s.db != nil {
		database.Close(s.db)
	}
}
