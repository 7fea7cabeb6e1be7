package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"visionassist/common/link"
	"visionassist/eyewear/internal/config"
	"visionassist/eyewear/internal/device"
	"visionassist/eyewear/internal/events"
	"visionassist/eyewear/internal/ranging"
	"visionassist/eyewear/internal/repository"
	"visionassist/eyewear/internal/session"
)

// ErrStopped 控制循环已退出
var ErrStopped = errors.New("control loop stopped")

// Recognizer 文字识别服务
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ReadingStore 识别历史存储
type ReadingStore interface {
	Insert(ctx context.Context, reading *repository.Reading) error
}

// Devices 眼镜端外部设备
type Devices struct {
	Ranger device.Ranger
	Camera device.Camera
	Touch  device.Touch
}

// Status 导航状态快照
type Status struct {
	Distance int    `json:"distance"`
	Pattern  int32  `json:"pattern"`
	Paused   bool   `json:"paused"`
	Status   string `json:"status"`
	Mode     string `json:"mode"`
}

// TextStatus 识别文本状态
type TextStatus struct {
	NewText bool   `json:"newText"`
	Reading bool   `json:"reading"`
	Text    string `json:"text"`
}

// StatusReading 暂停时的状态标签
const StatusReading = "READING"

type request struct {
	fn   func(ctx context.Context, now time.Time)
	done chan struct{}
}

// Controller 眼镜端控制循环
// Session / Sampler / Gate 只在循环 goroutine 内读写；界面请求以闭包形式排队到循环中执行
type Controller struct {
	tick              time.Duration
	statusLogInterval time.Duration
	minTextLength     int

	devices    Devices
	recognizer Recognizer
	sender     *link.Sender
	sampler    *ranging.Sampler
	gate       *ranging.Gate
	session    *session.Session
	events     events.Sink
	history    ReadingStore
	logger     *zap.Logger

	clock     func() time.Time
	requests  chan request
	stopped   chan struct{}
	stopOnce  sync.Once
	saving    sync.WaitGroup
	status    atomic.Pointer[Status]
	forceSend bool
	lastLog   time.Time
}

// NewController 创建控制循环
// sink 为 nil 时不发布事件，history 为 nil 时不保存识别历史
func NewController(cfg *config.Config, devices Devices, recognizer Recognizer, sender *link.Sender, sink events.Sink, history ReadingStore, logger *zap.Logger) *Controller {
	if sink == nil {
		sink = events.Nop{}
	}
	now := time.Now()
	c := &Controller{
		tick:              cfg.Control.Tick,
		statusLogInterval: cfg.Control.StatusLogInterval,
		minTextLength:     cfg.Session.MinTextLength,
		devices:           devices,
		recognizer:        recognizer,
		sender:            sender,
		sampler:           ranging.NewSampler(cfg.Thresholds, cfg.Control.StaleAfter, now),
		gate:              ranging.NewGate(),
		session:           session.New(cfg.Session, logger),
		events:            sink,
		history:           history,
		logger:            logger,
		clock:             time.Now,
		requests:          make(chan request),
		stopped:           make(chan struct{}),
	}
	c.publishStatus()
	return c
}

// Run 运行控制循环直到 ctx 取消
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer c.stop()

	c.logger.Info("Control loop started", zap.Duration("tick", c.tick))
	for {
		select {
		case <-ctx.Done():
			c.saving.Wait()
			stats := c.sender.Stats()
			accepted, rejected := c.sampler.Counts()
			c.logger.Info("Control loop stopped",
				zap.Int64("send_success", stats.SuccessCount),
				zap.Int64("send_fail", stats.FailCount),
				zap.Int64("samples_accepted", accepted),
				zap.Int64("samples_rejected", rejected),
			)
			return nil
		case req := <-c.requests:
			req.fn(ctx, c.clock())
			close(req.done)
		case <-ticker.C:
			c.Tick(ctx, c.clock())
		}
	}
}

func (c *Controller) stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// Tick 一个控制周期：触摸 -> 会话计时 -> 采样分级 -> 稳定门 -> 链路发送
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	if c.session.Touch(c.devices.Touch.Pressed(), now) {
		if _, err := c.capture(ctx, session.TriggerTouch, now); err != nil {
			c.logger.Debug("Touch capture rejected", zap.Error(err))
		}
		// 采集会阻塞整个周期，之后使用新的时间
		now = c.clock()
	}

	if c.session.Tick(now) {
		c.navigationResumed()
	}

	var level link.AlertLevel
	if raw, ok := c.devices.Ranger.Read(); ok {
		level = c.sampler.Ingest(raw, now)
	} else {
		level = c.sampler.Refresh(now)
	}

	committed, changed := c.gate.Commit(level)
	if changed {
		c.events.Publish(events.TypeAlertCommitted, events.AlertCommitted{
			Command:  committed.Command(),
			Pattern:  int32(committed),
			Distance: c.sampler.Smoothed(),
		})
	}

	force := changed || c.forceSend
	c.forceSend = false
	if _, err := c.sender.Tick(now, c.outgoing(), force); err != nil {
		c.logger.Debug("Link tick send failed", zap.Error(err))
	}

	c.publishStatus()
	c.logStatus(now)
}

// outgoing 采集或阅读期间只发送暂停命令
func (c *Controller) outgoing() link.Message {
	if c.session.Paused() {
		return link.PauseMessage()
	}
	return link.NavigationMessage(c.gate.Committed(), c.sampler.Smoothed())
}

func (c *Controller) navigationResumed() {
	c.forceSend = true
	c.events.Publish(events.TypeNavigationResumed, nil)
}

// capture 导航 -> 采集：发送暂停、拍摄、识别、归类结果
// 同步执行，期间控制循环不处理其他工作
func (c *Controller) capture(ctx context.Context, trigger session.Trigger, now time.Time) (session.Result, error) {
	capture, err := c.session.Begin(trigger, now)
	if err != nil {
		return session.Result{}, err
	}

	if err := c.sender.Send(now, link.PauseMessage()); err != nil {
		c.logger.Warn("Failed to send pause", zap.Error(err))
	}
	c.events.Publish(events.TypeCaptureStarted, events.CaptureStarted{
		CaptureID: capture.ID.String(),
		Trigger:   string(trigger),
	})
	c.publishStatus()

	var text string
	frame, captureErr := c.devices.Camera.Capture(ctx)
	var recognizeErr error
	if captureErr == nil {
		text, recognizeErr = c.recognizer.Recognize(ctx, frame)
	}
	if captureErr != nil {
		c.logger.Warn("Camera capture failed",
			zap.String("capture_id", capture.ID.String()),
			zap.Error(captureErr),
		)
	}
	if recognizeErr != nil {
		c.logger.Warn("Text recognition failed",
			zap.String("capture_id", capture.ID.String()),
			zap.Error(recognizeErr),
		)
	}

	outcome, display := session.Classify(text, captureErr, recognizeErr, c.minTextLength)
	result := c.session.Complete(outcome, display, c.clock())

	c.events.Publish(events.TypeCaptureCompleted, events.CaptureCompleted{
		CaptureID:  result.ID.String(),
		Trigger:    string(result.Trigger),
		Outcome:    string(result.Outcome),
		TextLength: len(result.Text),
		DurationMs: result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	})
	c.saveReading(result)
	c.publishStatus()
	return result, nil
}

// saveReading 异步写入识别历史，不阻塞控制循环
func (c *Controller) saveReading(result session.Result) {
	if c.history == nil {
		return
	}
	reading := &repository.Reading{
		CaptureID:  result.ID.String(),
		Trigger:    string(result.Trigger),
		Outcome:    string(result.Outcome),
		Text:       result.Text,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}

	c.saving.Add(1)
	go func() {
		defer c.saving.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.history.Insert(ctx, reading); err != nil {
			c.logger.Error("Failed to save reading",
				zap.String("capture_id", reading.CaptureID),
				zap.Error(err),
			)
		}
	}()
}

func (c *Controller) publishStatus() {
	committed := c.gate.Committed()
	status := &Status{
		Distance: c.sampler.Smoothed(),
		Pattern:  int32(committed),
		Paused:   c.session.Paused(),
		Status:   committed.String(),
		Mode:     c.session.Mode().String(),
	}
	if status.Paused {
		status.Status = StatusReading
	}
	c.status.Store(status)
}

func (c *Controller) logStatus(now time.Time) {
	if now.Sub(c.lastLog) < c.statusLogInterval {
		return
	}
	c.lastLog = now
	c.logger.Debug("Navigation status",
		zap.Int("distance", c.sampler.Smoothed()),
		zap.Int32("pattern", int32(c.gate.Committed())),
		zap.Bool("paused", c.session.Paused()),
	)
}

// do 把闭包排队到控制循环执行并等待完成
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context, now time.Time)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
	<-req.done
	return nil
}

// Status 最近一个周期的状态（无需经过控制循环）
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// RequestCapture 界面手动请求采集，守卫与触摸相同
func (c *Controller) RequestCapture(ctx context.Context) (session.Result, error) {
	var result session.Result
	var captureErr error
	err := c.do(ctx, func(loopCtx context.Context, now time.Time) {
		c.logger.Info("Manual capture requested")
		result, captureErr = c.capture(loopCtx, session.TriggerManual, now)
	})
	if err != nil {
		return session.Result{}, err
	}
	return result, captureErr
}

// TextStatus 查询识别文本，新文本标志在此被消费
func (c *Controller) TextStatus(ctx context.Context) (TextStatus, error) {
	var status TextStatus
	err := c.do(ctx, func(context.Context, time.Time) {
		status.Text, status.NewText = c.session.TakeNewText()
		status.Reading = c.session.Paused()
	})
	return status, err
}

// AckText 界面确认收到新文本
func (c *Controller) AckText(ctx context.Context) error {
	return c.do(ctx, func(context.Context, time.Time) {
		c.session.ClearNewText()
	})
}

// LastText 最后一次识别结果
func (c *Controller) LastText(ctx context.Context) (string, error) {
	var text string
	err := c.do(ctx, func(context.Context, time.Time) {
		text = c.session.LastText()
	})
	return text, err
}

// NarrationDone 界面朗读结束，恢复导航
func (c *Controller) NarrationDone(ctx context.Context) error {
	var ackErr error
	err := c.do(ctx, func(context.Context, time.Time) {
		wasPaused := c.session.Paused()
		if ackErr = c.session.Acknowledge(); ackErr != nil {
			return
		}
		if wasPaused {
			c.navigationResumed()
		}
		c.publishStatus()
	})
	if err != nil {
		return err
	}
	return ackErr
}

// Frame 拍摄一帧预览图
func (c *Controller) Frame(ctx context.Context) ([]byte, error) {
	var frame []byte
	var captureErr error
	err := c.do(ctx, func(loopCtx context.Context, _ time.Time) {
		frame, captureErr = c.devices.Camera.Capture(loopCtx)
	})
	if err != nil {
		return nil, err
	}
	return frame, captureErr
}
