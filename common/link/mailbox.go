package link

import (
	"sync/atomic"
	"time"
)

// Delivery 一次接收：消息与接收时间作为一个不可变整体交接
type Delivery struct {
	Message Message
	At      time.Time
}

// Mailbox 接收回调与主循环之间的单槽邮箱
// 回调是唯一生产者，主循环是唯一消费者；新消息覆盖未取走的旧消息
type Mailbox struct {
	slot       atomic.Pointer[Delivery]
	overwrites atomic.Uint64
}

// Put 投递（非阻塞），覆盖未消费的旧消息
func (m *Mailbox) Put(d Delivery) {
	if old := m.slot.Swap(&d); old != nil {
		m.overwrites.Add(1)
	}
}

// Take 取走最新消息
func (m *Mailbox) Take() (Delivery, bool) {
	d := m.slot.Swap(nil)
	if d == nil {
		return Delivery{}, false
	}
	return *d, true
}

// Overwrites 被覆盖的消息数
func (m *Mailbox) Overwrites() uint64 {
	return m.overwrites.Load()
}
