package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	cfg := LinkConfig{Topic: "visionassist/link", Heartbeat: 50 * time.Millisecond, Timeout: 1500 * time.Millisecond}

	os.Setenv("LINK_TOPIC", "test/link")
	os.Setenv("LINK_HEARTBEAT_MS", "80")
	os.Setenv("LINK_TIMEOUT_MS", "bad")
	cfg.LoadFromEnv("LINK")

	assert.Equal(t, "test/link", cfg.Topic)
	assert.Equal(t, 80*time.Millisecond, cfg.Heartbeat)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)

	os.Clearenv()
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "va", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=va sslmode=disable", cfg.GetDSN())
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	os.Clearenv()
	cfg := RedisConfig{Addr: "localhost:6379"}

	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("REDIS_DB", "2")
	cfg.LoadFromEnv("REDIS")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)

	os.Clearenv()
}
