package link

import (
	"visionassist/common/config"
	mqttcommon "visionassist/common/mqtt"
)

// Transport 无线广播通道（尽力而为，无投递保证）
type Transport interface {
	Broadcast(payload []byte) error
	Listen(handler func(payload []byte)) error
	Close()
}

// MQTTTransport 以 MQTT 主题承载链路广播
// QoS 0、不保留，丢包语义与原始无线链路一致
type MQTTTransport struct {
	client *mqttcommon.Client
	topic  string
	qos    byte
}

// NewMQTTTransport 创建 MQTT 链路
func NewMQTTTransport(client *mqttcommon.Client, cfg *config.LinkConfig) *MQTTTransport {
	return &MQTTTransport{
		client: client,
		topic:  cfg.Topic,
		qos:    0,
	}
}

// Broadcast 广播一条记录
func (t *MQTTTransport) Broadcast(payload []byte) error {
	return t.client.Publish(t.topic, t.qos, false, payload)
}

// Listen 注册接收回调，回调在 MQTT 客户端的 goroutine 中执行
func (t *MQTTTransport) Listen(handler func(payload []byte)) error {
	return t.client.Subscribe(t.topic, t.qos, func(_ string, payload []byte) error {
		handler(payload)
		return nil
	})
}

// Close 断开链路
func (t *MQTTTransport) Close() {
	_ = t.client.Unsubscribe(t.topic)
	t.client.Disconnect()
}
