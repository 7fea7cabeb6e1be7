package ranging

import (
	"time"

	"visionassist/common/link"
)

const (
	// SentinelDistance 无有效采样时的"远"值，视为无障碍
	SentinelDistance = 5000
	// MaxValidDistance 有效采样上界（不含）
	MaxValidDistance = 4000
	// WindowSize 滑动平均窗口
	WindowSize = 3
)

// Thresholds 距离分级阈值（毫米，严格小于）
type Thresholds struct {
	Critical int
	Warning  int
	Caution  int
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 1300, Warning: 1600, Caution: 2000}
}

// Classify 将距离映射到告警等级
func (t Thresholds) Classify(distance int) link.AlertLevel {
	switch {
	case distance < t.Critical:
		return link.AlertCritical
	case distance < t.Warning:
		return link.AlertWarning
	case distance < t.Caution:
		return link.AlertCaution
	default:
		return link.AlertClear
	}
}

// Sampler 测距采样、平滑与分级
// 纯状态机：不做 I/O，时间由调用方传入
type Sampler struct {
	thresholds Thresholds
	staleAfter time.Duration

	window       [WindowSize]int
	next         int
	smoothed     int
	lastAccepted time.Time
	accepted     int64
	rejected     int64
}

// NewSampler 创建采样器，start 视为最后一次有效采样时间
func NewSampler(thresholds Thresholds, staleAfter time.Duration, start time.Time) *Sampler {
	s := &Sampler{
		thresholds:   thresholds,
		staleAfter:   staleAfter,
		smoothed:     SentinelDistance,
		lastAccepted: start,
	}
	for i := range s.window {
		s.window[i] = SentinelDistance
	}
	return s
}

// Valid 采样是否有效：0 < value < 4000
func Valid(raw int) bool {
	return raw > 0 && raw < MaxValidDistance
}

// Ingest 写入一个原始采样并返回当前告警等级
// 无效采样直接丢弃，不进入平滑窗口
func (s *Sampler) Ingest(raw int, now time.Time) link.AlertLevel {
	if Valid(raw) {
		s.window[s.next] = raw
		s.next = (s.next + 1) % WindowSize
		s.smoothed = (s.window[0] + s.window[1] + s.window[2]) / WindowSize
		s.lastAccepted = now
		s.accepted++
	} else {
		s.rejected++
	}
	return s.Refresh(now)
}

// Refresh 在没有新采样的周期调用：超过 staleAfter 未收到有效采样时回到哨兵值
func (s *Sampler) Refresh(now time.Time) link.AlertLevel {
	if now.Sub(s.lastAccepted) > s.staleAfter {
		s.smoothed = SentinelDistance
		s.lastAccepted = now
	}
	return s.Level()
}

// Level 当前平滑距离对应的等级
func (s *Sampler) Level() link.AlertLevel {
	return s.thresholds.Classify(s.smoothed)
}

// Smoothed 当前平滑距离（毫米）
func (s *Sampler) Smoothed() int {
	return s.smoothed
}

// Counts 有效 / 无效采样计数
func (s *Sampler) Counts() (accepted, rejected int64) {
	return s.accepted, s.rejected
}
