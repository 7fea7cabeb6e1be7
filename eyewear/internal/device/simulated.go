package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// ErrEmptyFrame 摄像头返回空帧
var ErrEmptyFrame = errors.New("camera returned empty frame")

// ScriptedRanger 按脚本循环返回距离读数
type ScriptedRanger struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewScriptedRanger 创建脚本测距器；空脚本表示传感器一直没有读数
func NewScriptedRanger(values []int) *ScriptedRanger {
	return &ScriptedRanger{values: values}
}

// ParseScript 解析逗号分隔的距离脚本，如 "2500,1800,1200"
func ParseScript(script string) ([]int, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, nil
	}

	parts := strings.Split(script, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("failed to parse distance %q: %w", part, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// Read 返回下一个脚本值
func (r *ScriptedRanger) Read() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.values) == 0 {
		return 0, false
	}
	v := r.values[r.next]
	r.next = (r.next + 1) % len(r.values)
	return v, true
}

// FileCamera 每次拍摄都读取同一个 JPEG 文件
type FileCamera struct {
	path string
}

// NewFileCamera 创建文件摄像头
func NewFileCamera(path string) *FileCamera {
	return &FileCamera{path: path}
}

// Capture 读取帧文件
func (c *FileCamera) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.path == "" {
		return nil, fmt.Errorf("failed to capture frame: no frame file configured")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	return data, nil
}

// IdleTouch 从不按下
type IdleTouch struct{}

// Pressed 始终为 false
func (IdleTouch) Pressed() bool { return false }

// SignalTouch 收到 SIGUSR1 视为一次按下
// 按下只保持到下一次 Pressed 调用，之后自动松开
type SignalTouch struct {
	logger  *zap.Logger
	pending atomic.Bool
	signals chan os.Signal
}

// NewSignalTouch 创建信号触摸输入
func NewSignalTouch(logger *zap.Logger) *SignalTouch {
	return &SignalTouch{
		logger:  logger,
		signals: make(chan os.Signal, 1),
	}
}

// Run 监听 SIGUSR1，直到 ctx 取消
func (t *SignalTouch) Run(ctx context.Context) error {
	signal.Notify(t.signals, syscall.SIGUSR1)
	defer signal.Stop(t.signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.signals:
			t.press()
		}
	}
}

func (t *SignalTouch) press() {
	t.pending.Store(true)
	t.logger.Info("Touch pressed (SIGUSR1)")
}

// Pressed 返回并清除挂起的按下
func (t *SignalTouch) Pressed() bool {
	return t.pending.Swap(false)
}
