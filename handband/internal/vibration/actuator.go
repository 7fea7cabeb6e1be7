package vibration

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// LogActuator 无硬件时的执行器：把开关变化写入日志
type LogActuator struct {
	logger *zap.Logger
	on     atomic.Bool
}

// NewLogActuator 创建日志执行器
func NewLogActuator(logger *zap.Logger) *LogActuator {
	return &LogActuator{logger: logger}
}

// Set 开关马达和状态灯
func (a *LogActuator) Set(on bool) {
	if a.on.Swap(on) == on {
		return
	}
	if on {
		a.logger.Debug("Motor ON, LED ON")
	} else {
		a.logger.Debug("Motor OFF, LED OFF")
	}
}

// On 当前是否开启
func (a *LogActuator) On() bool {
	return a.on.Load()
}
