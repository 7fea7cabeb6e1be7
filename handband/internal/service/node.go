package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"visionassist/common/link"
	"visionassist/handband/internal/vibration"
)

// Stats 手环接收统计
type Stats struct {
	Received   int64  `json:"received"`
	Malformed  int64  `json:"malformed"`
	Overwrites uint64 `json:"overwrites"`
	Toggles    int64  `json:"toggles"`
}

// Node 手环主循环
// 接收回调只向邮箱投递；接收状态机和振动引擎只在主循环中推进
type Node struct {
	transport link.Transport
	actuator  vibration.Actuator
	mailbox   link.Mailbox
	receiver  *link.Receiver
	engine    *vibration.Engine
	tick      time.Duration
	logger    *zap.Logger

	clock     func() time.Time
	malformed atomic.Int64
}

// NewNode 创建手环节点，start 作为初始的最后接收时间
func NewNode(transport link.Transport, actuator vibration.Actuator, tick, linkTimeout time.Duration, start time.Time, logger *zap.Logger) *Node {
	engine := vibration.NewEngine(actuator, logger)
	return &Node{
		transport: transport,
		actuator:  actuator,
		receiver:  link.NewReceiver(engine, linkTimeout, start, logger),
		engine:    engine,
		tick:      tick,
		logger:    logger,
		clock:     time.Now,
	}
}

// Listen 注册链路接收回调
func (n *Node) Listen() error {
	return n.transport.Listen(n.onPayload)
}

// onPayload 在传输层 goroutine 中执行
func (n *Node) onPayload(payload []byte) {
	var msg link.Message
	if err := msg.UnmarshalBinary(payload); err != nil {
		if count := n.malformed.Add(1); count == 1 || count%100 == 0 {
			n.logger.Warn("Dropping malformed link message",
				zap.Int("size", len(payload)),
				zap.Int64("malformed", count),
			)
		}
		return
	}
	n.mailbox.Put(link.Delivery{Message: msg, At: n.clock()})
}

// ResetLink 以 now 作为最后接收时间重新开始链路超时计时
// 只在主循环启动前调用
func (n *Node) ResetLink(now time.Time) {
	n.receiver.ResetLink(now)
}

// SelfTest 启动自检：执行器开启 d 后关闭
func (n *Node) SelfTest(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	n.logger.Info("Testing motor and LED", zap.Duration("duration", d))
	n.actuator.Set(true)
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	n.actuator.Set(false)
}

// Run 运行主循环直到 ctx 取消
func (n *Node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()

	n.logger.Info("Handband loop started", zap.Duration("tick", n.tick))
	for {
		select {
		case <-ctx.Done():
			n.engine.Reset()
			stats := n.Stats()
			n.logger.Info("Handband loop stopped",
				zap.Int64("received", stats.Received),
				zap.Int64("malformed", stats.Malformed),
				zap.Uint64("overwrites", stats.Overwrites),
			)
			return nil
		case <-ticker.C:
			n.Step(n.clock())
		}
	}
}

// Step 一个周期：取最新消息 -> 链路检查 -> 推进脉冲
func (n *Node) Step(now time.Time) {
	if d, ok := n.mailbox.Take(); ok {
		n.receiver.Handle(d.Message, d.At)
	}
	n.receiver.CheckLink(now)
	n.engine.Tick(now)
}

// State 当前渲染状态（仅主循环或测试中调用）
func (n *Node) State() vibration.PulseState {
	return n.engine.State()
}

// Stats 接收统计（仅主循环或测试中调用）
func (n *Node) Stats() Stats {
	return Stats{
		Received:   n.receiver.Received(),
		Malformed:  n.malformed.Load(),
		Overwrites: n.mailbox.Overwrites(),
		Toggles:    n.engine.Toggles(),
	}
}
