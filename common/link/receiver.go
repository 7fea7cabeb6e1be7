package link

import (
	"time"

	"go.uber.org/zap"
)

// Renderer 接收端的振动渲染器
type Renderer interface {
	// ApplyPattern 切换振动模式并重置脉冲计时
	ApplyPattern(level AlertLevel, now time.Time)
	// SetPaused 暂停时无条件关闭执行器
	SetPaused(paused bool)
	// Reset 回到安全状态：不暂停、CLEAR、执行器关闭
	Reset()
}

// Receiver 手环端链路状态机
// 只在主循环中调用；回调通过 Mailbox 交接消息
type Receiver struct {
	renderer Renderer
	timeout  time.Duration
	logger   *zap.Logger

	lastReceived time.Time
	paused       bool
	applied      AlertLevel
	hasApplied   bool
	lost         bool
	received     int64
}

// NewReceiver 创建接收端，start 作为初始的最后接收时间
func NewReceiver(renderer Renderer, timeout time.Duration, start time.Time, logger *zap.Logger) *Receiver {
	return &Receiver{
		renderer:     renderer,
		timeout:      timeout,
		logger:       logger,
		lastReceived: start,
	}
}

// Handle 处理一条接收到的消息
func (r *Receiver) Handle(msg Message, at time.Time) {
	r.lastReceived = at
	r.received++
	r.lost = false

	if msg.IsPause() {
		r.renderer.SetPaused(true)
		if !r.paused {
			r.paused = true
			r.logger.Info("Reading mode, vibration paused")
		}
		return
	}

	if r.paused {
		r.paused = false
		r.renderer.SetPaused(false)
		r.logger.Info("Navigation mode, vibration active")
	}

	// 相同模式的心跳不能重置脉冲计时
	level := msg.Level()
	if r.hasApplied && level == r.applied {
		return
	}
	r.applied = level
	r.hasApplied = true
	r.renderer.ApplyPattern(level, at)

	r.logger.Debug("Pattern applied",
		zap.String("command", msg.Command),
		zap.Int32("distance", msg.Distance),
		zap.Int64("received", r.received),
	)
}

// CheckLink 静默超过超时时间时强制进入安全状态，返回链路是否丢失
func (r *Receiver) CheckLink(now time.Time) bool {
	if now.Sub(r.lastReceived) <= r.timeout {
		return false
	}
	if !r.lost {
		r.lost = true
		r.logger.Warn("Link lost, vibration stopped",
			zap.Duration("silence", now.Sub(r.lastReceived)),
		)
	}
	r.paused = false
	r.applied = AlertClear
	r.hasApplied = false
	r.renderer.Reset()
	return true
}

// ResetLink 重新开始链路超时计时，启动自检结束后调用
func (r *Receiver) ResetLink(now time.Time) {
	r.lastReceived = now
	r.lost = false
}

// Lost 链路是否处于丢失状态
func (r *Receiver) Lost() bool {
	return r.lost
}

// Paused 是否处于暂停
func (r *Receiver) Paused() bool {
	return r.paused
}

// Applied 当前已应用的模式
func (r *Receiver) Applied() AlertLevel {
	return r.applied
}

// LastReceived 最后接收时间
func (r *Receiver) LastReceived() time.Time {
	return r.lastReceived
}

// Received 已处理的消息数
func (r *Receiver) Received() int64 {
	return r.received
}
