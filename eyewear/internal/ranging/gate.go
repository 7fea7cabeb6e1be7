package ranging

import "visionassist/common/link"

// levelUnknown 尚未观察到任何原始等级
const levelUnknown link.AlertLevel = -1

// Gate 稳定门：决定原始等级何时被"提交"并需要发送
//   - CRITICAL 与 CLEAR 在同一周期内提交
//   - WARNING / CAUTION 需要再一个相同读数确认，抑制单次抖动
type Gate struct {
	lastRaw     link.AlertLevel
	stableCount int
	committed   link.AlertLevel
}

// NewGate 创建稳定门，初始提交等级为 CLEAR
func NewGate() *Gate {
	return &Gate{
		lastRaw:   levelUnknown,
		committed: link.AlertClear,
	}
}

// Commit 每个控制周期调用一次
func (g *Gate) Commit(raw link.AlertLevel) (link.AlertLevel, bool) {
	shouldSend := false

	switch {
	case raw == link.AlertCritical && g.committed != link.AlertCritical:
		g.committed = link.AlertCritical
		shouldSend = true
	case raw != g.lastRaw:
		g.lastRaw = raw
		g.stableCount = 0
		if raw == link.AlertClear {
			g.committed = link.AlertClear
			shouldSend = true
		}
	default:
		g.stableCount++
		if g.stableCount >= 1 && g.committed != raw {
			g.committed = raw
			shouldSend = true
		}
	}

	return g.committed, shouldSend
}

// Committed 当前已提交的等级
func (g *Gate) Committed() link.AlertLevel {
	return g.committed
}
