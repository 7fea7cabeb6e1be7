package device

import "context"

// Ranger 测距传感器
type Ranger interface {
	// Read 读取一次原始距离（mm）；ok=false 表示本周期没有新读数
	Read() (distance int, ok bool)
}

// Camera 摄像头
type Camera interface {
	// Capture 拍摄一帧 JPEG
	Capture(ctx context.Context) ([]byte, error)
}

// Touch 触摸输入
type Touch interface {
	// Pressed 当前是否按下
	Pressed() bool
}
