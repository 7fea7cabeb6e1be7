package link

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SendStats 发送统计
type SendStats struct {
	SuccessCount    int64
	FailCount       int64
	LastSendSuccess time.Time
	LastSendFail    time.Time
	LastMessage     Message
}

// Sender 眼镜端发送器：事件触发立即发送，否则按心跳间隔无条件重发
// 只由控制循环调用
type Sender struct {
	transport Transport
	heartbeat time.Duration
	logger    *zap.Logger

	lastSend time.Time
	hasSent  bool

	mu    sync.RWMutex
	stats SendStats
}

// NewSender 创建发送器
func NewSender(transport Transport, heartbeat time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		transport: transport,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Tick 每个控制周期调用一次
// force 为稳定门的 shouldSend；未强制时仅在心跳到期后发送
func (s *Sender) Tick(now time.Time, msg Message, force bool) (bool, error) {
	if !force && s.hasSent && now.Sub(s.lastSend) < s.heartbeat {
		return false, nil
	}
	return true, s.Send(now, msg)
}

// Send 立即发送一条消息并重置心跳计时
func (s *Sender) Send(now time.Time, msg Message) error {
	s.lastSend = now
	s.hasSent = true

	payload, err := msg.MarshalBinary()
	if err != nil {
		s.recordFailure(now, msg)
		return fmt.Errorf("failed to encode link message: %w", err)
	}

	if err := s.transport.Broadcast(payload); err != nil {
		s.recordFailure(now, msg)
		return fmt.Errorf("failed to broadcast link message: %w", err)
	}

	s.mu.Lock()
	s.stats.SuccessCount++
	s.stats.LastSendSuccess = now
	s.stats.LastMessage = msg
	s.mu.Unlock()
	return nil
}

func (s *Sender) recordFailure(now time.Time, msg Message) {
	s.mu.Lock()
	s.stats.FailCount++
	s.stats.LastSendFail = now
	s.stats.LastMessage = msg
	failures := s.stats.FailCount
	s.mu.Unlock()

	// 心跳频率很高，失败日志按计数稀释
	if failures == 1 || failures%100 == 0 {
		s.logger.Warn("Link send failed",
			zap.String("command", msg.Command),
			zap.Int64("fail_count", failures),
		)
	}
}

// Stats 获取发送统计快照（线程安全）
func (s *Sender) Stats() SendStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
