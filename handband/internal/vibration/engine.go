package vibration

import (
	"time"

	"go.uber.org/zap"

	"visionassist/common/link"
)

// Actuator 振动马达与状态灯（同时开关）
type Actuator interface {
	Set(on bool)
}

// Pulse 脉冲模式的开 / 关时长
type Pulse struct {
	On  time.Duration
	Off time.Duration
}

// Pulses 各等级的脉冲时长；CLEAR 常关，CRITICAL 常开
var Pulses = map[link.AlertLevel]Pulse{
	link.AlertWarning: {On: 150 * time.Millisecond, Off: 400 * time.Millisecond},
	link.AlertCaution: {On: 600 * time.Millisecond, Off: 300 * time.Millisecond},
}

// PulseState 渲染状态
type PulseState struct {
	Level      link.AlertLevel
	On         bool
	LastToggle time.Time
	Paused     bool
}

// Engine 振动模式引擎
// 只在手环主循环中调用；实现 link.Renderer
type Engine struct {
	actuator Actuator
	logger   *zap.Logger
	state    PulseState
	toggles  int64
}

// NewEngine 创建引擎，初始执行器关闭
func NewEngine(actuator Actuator, logger *zap.Logger) *Engine {
	e := &Engine{
		actuator: actuator,
		logger:   logger,
	}
	e.actuator.Set(false)
	return e
}

// ApplyPattern 切换模式：重置脉冲计时，非 CLEAR 模式从"开"开始
func (e *Engine) ApplyPattern(level link.AlertLevel, now time.Time) {
	if !level.Valid() {
		level = link.AlertClear
	}
	e.state.Level = level
	e.state.LastToggle = now
	e.set(level != link.AlertClear && !e.state.Paused)

	e.logger.Debug("Vibration pattern changed", zap.String("pattern", level.String()))
}

// SetPaused 暂停时执行器无条件关闭
func (e *Engine) SetPaused(paused bool) {
	e.state.Paused = paused
	if paused {
		e.set(false)
	}
}

// Reset 回到安全状态
func (e *Engine) Reset() {
	e.state.Paused = false
	e.state.Level = link.AlertClear
	e.set(false)
}

// Tick 推进脉冲计时
func (e *Engine) Tick(now time.Time) {
	if e.state.Paused {
		e.set(false)
		return
	}

	switch e.state.Level {
	case link.AlertCritical:
		e.set(true)
	case link.AlertWarning, link.AlertCaution:
		pulse := Pulses[e.state.Level]
		elapsed := now.Sub(e.state.LastToggle)
		if e.state.On && elapsed >= pulse.On {
			e.set(false)
			e.state.LastToggle = now
		} else if !e.state.On && elapsed >= pulse.Off {
			e.set(true)
			e.state.LastToggle = now
		}
	default:
		e.set(false)
	}
}

func (e *Engine) set(on bool) {
	if e.state.On == on {
		return
	}
	e.state.On = on
	e.toggles++
	e.actuator.Set(on)
}

// State 当前渲染状态
func (e *Engine) State() PulseState {
	return e.state
}

// Toggles 执行器切换次数
func (e *Engine) Toggles() int64 {
	return e.toggles
}
