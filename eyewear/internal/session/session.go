package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode 眼镜端会话模式
type Mode int

const (
	ModeNavigation Mode = iota
	ModeCapturing
	ModeReading
)

func (m Mode) String() string {
	switch m {
	case ModeCapturing:
		return "capturing"
	case ModeReading:
		return "reading"
	default:
		return "navigation"
	}
}

// Trigger 采集触发来源
type Trigger string

const (
	TriggerTouch  Trigger = "touch"
	TriggerManual Trigger = "manual"
)

var (
	// ErrCaptureInFlight 已有采集在进行或尚未恢复导航
	ErrCaptureInFlight = errors.New("capture already in progress")
	// ErrReading 正在朗读，需先确认朗读结束
	ErrReading = errors.New("session is in reading mode")
)

// Timings 会话时间策略
type Timings struct {
	TouchDebounce      time.Duration
	ReadingCeiling     time.Duration
	NoTextResume       time.Duration
	CaptureFaultResume time.Duration
	MinTextLength      int
}

// DefaultTimings 默认时间策略
func DefaultTimings() Timings {
	return Timings{
		TouchDebounce:      1000 * time.Millisecond,
		ReadingCeiling:     60000 * time.Millisecond,
		NoTextResume:       2500 * time.Millisecond,
		CaptureFaultResume: 1000 * time.Millisecond,
		MinTextLength:      3,
	}
}

// Capture 一次进行中的采集
type Capture struct {
	ID        uuid.UUID
	Trigger   Trigger
	StartedAt time.Time
}

// Result 一次采集的最终结果
type Result struct {
	Capture
	Outcome    Outcome
	Text       string
	FinishedAt time.Time
}

// Snapshot 会话状态快照
type Snapshot struct {
	Mode     Mode
	Paused   bool
	InFlight bool
	LastText string
	NewText  bool
	ResumeAt time.Time
	Deadline time.Time
}

// Session 导航 / 阅读模式仲裁
// 只由眼镜控制循环持有和修改
type Session struct {
	timings Timings
	logger  *zap.Logger

	mode            Mode
	current         *Capture
	inFlight        bool
	resumeAt        time.Time
	readingDeadline time.Time

	lastText string
	newText  bool

	touchDown bool
	lastTouch time.Time
	touched   bool
}

// New 创建会话，初始为导航模式
func New(timings Timings, logger *zap.Logger) *Session {
	return &Session{
		timings:  timings,
		logger:   logger,
		mode:     ModeNavigation,
		lastText: NoTextYet,
	}
}

// Touch 输入触摸电平，返回是否应开始一次采集
// 只在上升沿触发，两次触发至少间隔 TouchDebounce，且仅在导航模式下
func (s *Session) Touch(pressed bool, now time.Time) bool {
	rising := pressed && !s.touchDown
	s.touchDown = pressed
	if !rising || s.mode != ModeNavigation {
		return false
	}
	if s.touched && now.Sub(s.lastTouch) <= s.timings.TouchDebounce {
		return false
	}
	s.touched = true
	s.lastTouch = now
	return true
}

// Begin 导航 -> 采集；触摸与手动请求使用同一守卫
func (s *Session) Begin(trigger Trigger, now time.Time) (Capture, error) {
	switch s.mode {
	case ModeCapturing:
		return Capture{}, ErrCaptureInFlight
	case ModeReading:
		return Capture{}, ErrReading
	}

	capture := Capture{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: now,
	}
	s.mode = ModeCapturing
	s.current = &capture
	s.inFlight = true
	s.resumeAt = time.Time{}
	s.readingDeadline = time.Time{}

	s.logger.Info("Capture started, vibration paused",
		zap.String("capture_id", capture.ID.String()),
		zap.String("trigger", string(trigger)),
	)
	return capture, nil
}

// Complete 采集结束：有文本进入阅读模式，否则安排延迟自动恢复
func (s *Session) Complete(outcome Outcome, text string, now time.Time) Result {
	result := Result{
		Outcome:    outcome,
		Text:       text,
		FinishedAt: now,
	}
	if s.current != nil {
		result.Capture = *s.current
	}
	if s.mode != ModeCapturing || !s.inFlight {
		s.logger.Warn("Capture completion without capture in flight",
			zap.String("mode", s.mode.String()),
		)
		return result
	}

	s.inFlight = false
	s.lastText = text
	s.newText = true

	switch outcome {
	case OutcomeText:
		s.mode = ModeReading
		s.readingDeadline = now.Add(s.timings.ReadingCeiling)
		s.logger.Info("Text found, waiting for narration",
			zap.String("capture_id", result.ID.String()),
			zap.Int("text_length", len(text)),
		)
	case OutcomeCaptureError:
		s.resumeAt = now.Add(s.timings.CaptureFaultResume)
		s.logger.Warn("Capture failed, auto-resume scheduled",
			zap.String("capture_id", result.ID.String()),
			zap.Duration("delay", s.timings.CaptureFaultResume),
		)
	default:
		s.resumeAt = now.Add(s.timings.NoTextResume)
		s.logger.Info("No useful text, auto-resume scheduled",
			zap.String("capture_id", result.ID.String()),
			zap.String("outcome", string(outcome)),
			zap.Duration("delay", s.timings.NoTextResume),
		)
	}
	return result
}

// Tick 每个控制周期调用：处理自动恢复和阅读超时，返回本周期是否恢复了导航
func (s *Session) Tick(now time.Time) bool {
	switch s.mode {
	case ModeCapturing:
		if !s.inFlight && !s.resumeAt.IsZero() && !now.Before(s.resumeAt) {
			s.resume("auto_resume", false)
			return true
		}
	case ModeReading:
		if !now.Before(s.readingDeadline) {
			s.resume("reading_timeout", true)
			return true
		}
	}
	return false
}

// Acknowledge 界面确认朗读结束
// 阅读模式或已完成待恢复的采集都会立即恢复导航；采集进行中时拒绝
func (s *Session) Acknowledge() error {
	switch s.mode {
	case ModeCapturing:
		if s.inFlight {
			return ErrCaptureInFlight
		}
		s.resume("acknowledged", true)
	case ModeReading:
		s.resume("acknowledged", true)
	default:
		s.newText = false
	}
	return nil
}

func (s *Session) resume(reason string, clearNewText bool) {
	s.mode = ModeNavigation
	s.resumeAt = time.Time{}
	s.readingDeadline = time.Time{}
	s.current = nil
	if clearNewText {
		s.newText = false
	}
	s.logger.Info("Navigation mode resumed", zap.String("reason", reason))
}

// TakeNewText 取走新文本，新文本标志只被消费一次
func (s *Session) TakeNewText() (string, bool) {
	if !s.newText {
		return s.lastText, false
	}
	s.newText = false
	return s.lastText, true
}

// ClearNewText 界面确认已收到新文本
func (s *Session) ClearNewText() {
	s.newText = false
}

// Paused 采集或阅读期间导航反馈暂停
func (s *Session) Paused() bool {
	return s.mode != ModeNavigation
}

// Mode 当前模式
func (s *Session) Mode() Mode {
	return s.mode
}

// LastText 最后一次识别文本（含错误标记）
func (s *Session) LastText() string {
	return s.lastText
}

// Snapshot 状态快照
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Mode:     s.mode,
		Paused:   s.Paused(),
		InFlight: s.inFlight,
		LastText: s.lastText,
		NewText:  s.newText,
		ResumeAt: s.resumeAt,
		Deadline: s.readingDeadline,
	}
}
