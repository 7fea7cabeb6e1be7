package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"visionassist/common/config"
	"visionassist/eyewear/internal/ranging"
	"visionassist/eyewear/internal/session"
)

// Config 眼镜端配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	Link     config.LinkConfig

	// 控制循环
	Control struct {
		Tick              time.Duration // 控制周期
		StaleAfter        time.Duration // 超过该时长无有效读数则回到哨兵距离
		StatusLogInterval time.Duration // 调试状态日志间隔
	}

	Thresholds ranging.Thresholds
	Session    session.Timings

	// 文字识别服务
	Vision struct {
		BaseURL string
		Path    string
		APIKey  string
		Timeout time.Duration
	}

	HTTP struct {
		Addr       string
		StatusPush time.Duration // /ws/status 推送间隔
	}

	Events struct {
		Stream string
		MaxLen int64
		Buffer int
	}

	// 模拟设备
	Device struct {
		RangerScript string // 逗号分隔的距离脚本（mm）
		FramePath    string // 摄像头帧文件
		Touch        string // "idle" 或 "signal"
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置：环境变量提供默认值，命令行参数覆盖
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	cfg.Database.Enabled = false
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "visionassist")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 5
	cfg.Database.MaxIdle = 2
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Enabled = false
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "visionassist-eyewear")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 0

	cfg.Link.Topic = "visionassist/link"
	cfg.Link.Heartbeat = 50 * time.Millisecond
	cfg.Link.Timeout = 1500 * time.Millisecond
	cfg.Link.LoadFromEnv("LINK")

	cfg.Control.Tick = config.DurationMillisFromEnv("EYEWEAR_TICK_MS", 20*time.Millisecond)
	cfg.Control.StaleAfter = config.DurationMillisFromEnv("EYEWEAR_STALE_MS", 1000*time.Millisecond)
	cfg.Control.StatusLogInterval = config.DurationMillisFromEnv("EYEWEAR_STATUS_LOG_MS", 500*time.Millisecond)

	defaults := ranging.DefaultThresholds()
	cfg.Thresholds.Critical = getEnvInt("EYEWEAR_CRITICAL_MM", defaults.Critical)
	cfg.Thresholds.Warning = getEnvInt("EYEWEAR_WARNING_MM", defaults.Warning)
	cfg.Thresholds.Caution = getEnvInt("EYEWEAR_CAUTION_MM", defaults.Caution)

	timings := session.DefaultTimings()
	cfg.Session.TouchDebounce = config.DurationMillisFromEnv("EYEWEAR_TOUCH_DEBOUNCE_MS", timings.TouchDebounce)
	cfg.Session.ReadingCeiling = config.DurationMillisFromEnv("EYEWEAR_READING_CEILING_MS", timings.ReadingCeiling)
	cfg.Session.NoTextResume = config.DurationMillisFromEnv("EYEWEAR_NO_TEXT_RESUME_MS", timings.NoTextResume)
	cfg.Session.CaptureFaultResume = config.DurationMillisFromEnv("EYEWEAR_CAPTURE_FAULT_RESUME_MS", timings.CaptureFaultResume)
	cfg.Session.MinTextLength = getEnvInt("EYEWEAR_MIN_TEXT_LENGTH", timings.MinTextLength)

	cfg.Vision.BaseURL = getEnv("VISION_BASE_URL", "https://vision.googleapis.com")
	cfg.Vision.Path = getEnv("VISION_PATH", "/v1/images:annotate")
	cfg.Vision.APIKey = getEnv("VISION_API_KEY", "")
	cfg.Vision.Timeout = config.DurationMillisFromEnv("VISION_TIMEOUT_MS", 30*time.Second)

	cfg.HTTP.Addr = getEnv("EYEWEAR_HTTP_ADDR", ":8080")
	cfg.HTTP.StatusPush = config.DurationMillisFromEnv("EYEWEAR_STATUS_PUSH_MS", 300*time.Millisecond)

	cfg.Events.Stream = getEnv("EYEWEAR_EVENTS_STREAM", "eyewear:events:stream")
	cfg.Events.MaxLen = int64(getEnvInt("EYEWEAR_EVENTS_MAXLEN", 10000))
	cfg.Events.Buffer = getEnvInt("EYEWEAR_EVENTS_BUFFER", 256)

	cfg.Device.RangerScript = getEnv("EYEWEAR_RANGER_SCRIPT", "2500,2400,2200,1900,1700,1500,1250,1250,1800,2600")
	cfg.Device.FramePath = getEnv("EYEWEAR_FRAME_PATH", "")
	cfg.Device.Touch = getEnv("EYEWEAR_TOUCH", "signal")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 命令行覆盖
	fs := pflag.NewFlagSet("eyewear", pflag.ContinueOnError)
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: json or console")
	fs.StringVar(&cfg.HTTP.Addr, "http-addr", cfg.HTTP.Addr, "UI API listen address")
	fs.StringVar(&cfg.MQTT.Broker, "mqtt-broker", cfg.MQTT.Broker, "MQTT broker URL carrying the link")
	fs.StringVar(&cfg.Link.Topic, "link-topic", cfg.Link.Topic, "link broadcast topic")
	fs.DurationVar(&cfg.Control.Tick, "tick", cfg.Control.Tick, "control loop period")
	fs.DurationVar(&cfg.Link.Heartbeat, "heartbeat", cfg.Link.Heartbeat, "link heartbeat interval")
	fs.StringVar(&cfg.Device.RangerScript, "ranger-script", cfg.Device.RangerScript, "comma separated simulated distances (mm)")
	fs.StringVar(&cfg.Device.FramePath, "frame", cfg.Device.FramePath, "JPEG file served by the simulated camera")
	fs.StringVar(&cfg.Device.Touch, "touch", cfg.Device.Touch, "touch input: idle or signal")
	fs.BoolVar(&cfg.Redis.Enabled, "events", cfg.Redis.Enabled, "publish events to Redis Streams")
	fs.BoolVar(&cfg.Database.Enabled, "history", cfg.Database.Enabled, "store readings in PostgreSQL")
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
	if c.Link.Heartbeat <= 0 {
		return fmt.Errorf("invalid heartbeat: %s", c.Link.Heartbeat)
	}
	if c.Link.Topic == "" {
		return fmt.Errorf("link topic is required")
	}
	t := c.Thresholds
	if t.Critical <= 0 || t.Critical >= t.Warning || t.Warning >= t.Caution {
		return fmt.Errorf("invalid thresholds: critical=%d warning=%d caution=%d", t.Critical, t.Warning, t.Caution)
	}
	if t.Caution > ranging.MaxValidDistance {
		return fmt.Errorf("caution threshold %d exceeds max valid distance %d", t.Caution, ranging.MaxValidDistance)
	}
	switch c.Device.Touch {
	case "idle", "signal":
	default:
		return fmt.Errorf("unknown touch input %q", c.Device.Touch)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
