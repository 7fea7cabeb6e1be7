package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "visionassist/common/redis"
)

// 事件类型
const (
	TypeAlertCommitted    = "alert_committed"
	TypeCaptureStarted    = "capture_started"
	TypeCaptureCompleted  = "capture_completed"
	TypeNavigationResumed = "navigation_resumed"
)

// AlertCommitted 稳定门提交了新的告警等级
type AlertCommitted struct {
	Command  string `json:"command"`
	Pattern  int32  `json:"pattern"`
	Distance int    `json:"distance"`
}

// CaptureStarted 开始一次采集
type CaptureStarted struct {
	CaptureID string `json:"capture_id"`
	Trigger   string `json:"trigger"`
}

// CaptureCompleted 采集识别结束
type CaptureCompleted struct {
	CaptureID  string `json:"capture_id"`
	Trigger    string `json:"trigger"`
	Outcome    string `json:"outcome"`
	TextLength int    `json:"text_length"`
	DurationMs int64  `json:"duration_ms"`
}

// Sink 事件出口
type Sink interface {
	Publish(eventType string, data interface{})
}

// Nop 未启用 Redis 时的空实现
type Nop struct{}

// Publish 丢弃事件
func (Nop) Publish(string, interface{}) {}

type event struct {
	eventType string
	data      interface{}
}

// Publisher 把眼镜端事件写入 Redis Streams
// Publish 不阻塞控制循环：队列满时丢弃并计数
type Publisher struct {
	redisClient *redis.Client
	stream      string
	maxLen      int64
	queue       chan event
	logger      *zap.Logger

	published atomic.Int64
	dropped   atomic.Int64
}

// NewPublisher 创建事件发布器
func NewPublisher(redisClient *redis.Client, stream string, maxLen int64, bufferSize int, logger *zap.Logger) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		stream:      stream,
		maxLen:      maxLen,
		queue:       make(chan event, bufferSize),
		logger:      logger,
	}
}

// Publish 入队一条事件
func (p *Publisher) Publish(eventType string, data interface{}) {
	select {
	case p.queue <- event{eventType: eventType, data: data}:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.logger.Warn("Event queue full, dropping event",
				zap.String("event_type", eventType),
				zap.Int64("dropped", n),
			)
		}
	}
}

// Run 消费队列直到 ctx 取消，取消后尽量写完剩余事件
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Event publisher started", zap.String("stream", p.stream))
	for {
		select {
		case <-ctx.Done():
			p.drain()
			p.logger.Info("Event publisher stopped",
				zap.Int64("published", p.published.Load()),
				zap.Int64("dropped", p.dropped.Load()),
			)
			return nil
		case ev := <-p.queue:
			p.write(ev)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case ev := <-p.queue:
			p.write(ev)
		default:
			return
		}
	}
}

// write 不继承 Run 的 ctx，停止时已入队的事件仍能写出
func (p *Publisher) write(ev event) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	streamID, err := rediscommon.PublishJSONToStream(writeCtx, p.redisClient, p.stream, p.maxLen, ev.eventType, ev.data)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("stream", p.stream),
			zap.String("event_type", ev.eventType),
			zap.Error(err),
		)
		return
	}
	p.published.Add(1)
	p.logger.Debug("Published event",
		zap.String("event_type", ev.eventType),
		zap.String("stream_id", streamID),
	)
}

// Counts 已发布 / 已丢弃数量
func (p *Publisher) Counts() (published, dropped int64) {
	return p.published.Load(), p.dropped.Load()
}
