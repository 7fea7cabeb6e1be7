package link

// AlertLevel 障碍物告警等级
// 数值是协议编码而非紧急程度：CRITICAL=1 最紧急
type AlertLevel int32

const (
	AlertClear    AlertLevel = 0
	AlertCritical AlertLevel = 1
	AlertWarning  AlertLevel = 2
	AlertCaution  AlertLevel = 3
)

// 命令标签
const (
	CommandClear    = "CLEAR"
	CommandCritical = "CRITICAL"
	CommandWarning  = "WARNING"
	CommandCaution  = "CAUTION"
	CommandPause    = "PAUSE"
)

// Valid 是否为已知的告警编码
func (l AlertLevel) Valid() bool {
	return l >= AlertClear && l <= AlertCaution
}

// Command 返回等级对应的命令标签，未知编码按 CLEAR 处理
func (l AlertLevel) Command() string {
	switch l {
	case AlertCritical:
		return CommandCritical
	case AlertWarning:
		return CommandWarning
	case AlertCaution:
		return CommandCaution
	default:
		return CommandClear
	}
}

func (l AlertLevel) String() string {
	return l.Command()
}
