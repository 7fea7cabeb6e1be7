package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"visionassist/common/config"
)

// Config 手环端配置
type Config struct {
	MQTT config.MQTTConfig
	Link config.LinkConfig

	Control struct {
		Tick     time.Duration // 主循环周期
		SelfTest time.Duration // 启动自检时执行器开启时长，0 表示跳过
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置：环境变量提供默认值，命令行参数覆盖
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "visionassist-handband")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 0

	cfg.Link.Topic = "visionassist/link"
	cfg.Link.Heartbeat = 50 * time.Millisecond
	cfg.Link.Timeout = 1500 * time.Millisecond
	cfg.Link.LoadFromEnv("LINK")

	cfg.Control.Tick = config.DurationMillisFromEnv("HANDBAND_TICK_MS", 10*time.Millisecond)
	cfg.Control.SelfTest = config.DurationMillisFromEnv("HANDBAND_SELF_TEST_MS", 1000*time.Millisecond)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 命令行覆盖
	fs := pflag.NewFlagSet("handband", pflag.ContinueOnError)
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: json or console")
	fs.StringVar(&cfg.MQTT.Broker, "mqtt-broker", cfg.MQTT.Broker, "MQTT broker URL carrying the link")
	fs.StringVar(&cfg.Link.Topic, "link-topic", cfg.Link.Topic, "link broadcast topic")
	fs.DurationVar(&cfg.Link.Timeout, "link-timeout", cfg.Link.Timeout, "silence before the link is considered lost")
	fs.DurationVar(&cfg.Control.Tick, "tick", cfg.Control.Tick, "main loop period")
	fs.DurationVar(&cfg.Control.SelfTest, "self-test", cfg.Control.SelfTest, "actuator self test duration at startup (0 disables)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Control.Tick <= 0 {
		return fmt.Errorf("invalid tick: %s", c.Control.Tick)
	}
	if c.Link.Timeout <= c.Link.Heartbeat {
		return fmt.Errorf("link timeout %s must exceed heartbeat %s", c.Link.Timeout, c.Link.Heartbeat)
	}
	if c.Link.Topic == "" {
		return fmt.Errorf("link topic is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
