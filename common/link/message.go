package link

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// CommandSize 命令字段固定长度（含结尾 NUL）
	CommandSize = 32
	// MessageSize 线上记录长度：command[32] + int32 distance + int32 pattern
	MessageSize = CommandSize + 4 + 4
)

// ErrMalformed 线上记录长度或内容不合法
var ErrMalformed = errors.New("malformed link message")

// Message 眼镜广播给手环的固定格式记录
// 无确认、无序号，接收端只依赖周期性重发收敛
type Message struct {
	Command  string
	Distance int32
	Pattern  int32
}

// NavigationMessage 根据已提交的告警等级和平滑距离构造导航消息
func NavigationMessage(level AlertLevel, distance int) Message {
	return Message{
		Command:  level.Command(),
		Distance: int32(distance),
		Pattern:  int32(level),
	}
}

// PauseMessage 阅读模式下的暂停消息，距离和模式均为 0
func PauseMessage() Message {
	return Message{Command: CommandPause}
}

// IsPause 是否为暂停命令
func (m Message) IsPause() bool {
	return m.Command == CommandPause
}

// Level 消息携带的振动模式，未知编码按 CLEAR 处理
func (m Message) Level() AlertLevel {
	level := AlertLevel(m.Pattern)
	if !level.Valid() {
		return AlertClear
	}
	return level
}

// MarshalBinary 编码为小端固定长度记录
func (m Message) MarshalBinary() ([]byte, error) {
	if len(m.Command) >= CommandSize {
		return nil, fmt.Errorf("command %q exceeds %d bytes: %w", m.Command, CommandSize-1, ErrMalformed)
	}
	buf := make([]byte, MessageSize)
	copy(buf[:CommandSize], m.Command)
	binary.LittleEndian.PutUint32(buf[CommandSize:], uint32(m.Distance))
	binary.LittleEndian.PutUint32(buf[CommandSize+4:], uint32(m.Pattern))
	return buf, nil
}

// UnmarshalBinary 解码固定长度记录
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) != MessageSize {
		return fmt.Errorf("got %d bytes, want %d: %w", len(data), MessageSize, ErrMalformed)
	}
	command := data[:CommandSize]
	if i := bytes.IndexByte(command, 0); i >= 0 {
		command = command[:i]
	}
	m.Command = string(command)
	m.Distance = int32(binary.LittleEndian.Uint32(data[CommandSize:]))
	m.Pattern = int32(binary.LittleEndian.Uint32(data[CommandSize+4:]))
	return nil
}
