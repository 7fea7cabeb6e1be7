package link

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTransport struct {
	sent []Message
	err  error
}

func (r *recordingTransport) Broadcast(payload []byte) error {
	if r.err != nil {
		return r.err
	}
	var msg Message
	if err := msg.UnmarshalBinary(payload); err != nil {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) Listen(func([]byte)) error { return nil }
func (r *recordingTransport) Close()                    {}

func TestSender_HeartbeatCadence(t *testing.T) {
	tr := &recordingTransport{}
	s := NewSender(tr, 50*time.Millisecond, zap.NewNop())
	t0 := time.Unix(1000, 0)
	msg := NavigationMessage(AlertClear, 5000)

	sent, err := s.Tick(t0, msg, false)
	require.NoError(t, err)
	assert.True(t, sent, "first tick always sends")

	sent, _ = s.Tick(t0.Add(20*time.Millisecond), msg, false)
	assert.False(t, sent)
	sent, _ = s.Tick(t0.Add(40*time.Millisecond), msg, false)
	assert.False(t, sent)
	sent, _ = s.Tick(t0.Add(60*time.Millisecond), msg, false)
	assert.True(t, sent)

	assert.Len(t, tr.sent, 2)
}

func TestSender_ForcedSendIgnoresHeartbeat(t *testing.T) {
	tr := &recordingTransport{}
	s := NewSender(tr, 50*time.Millisecond, zap.NewNop())
	t0 := time.Unix(1000, 0)

	_, _ = s.Tick(t0, NavigationMessage(AlertClear, 5000), false)
	sent, err := s.Tick(t0.Add(5*time.Millisecond), NavigationMessage(AlertCritical, 1200), true)
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, tr.sent, 2)
	assert.Equal(t, Message{Command: "CRITICAL", Distance: 1200, Pattern: 1}, tr.sent[1])
}

func TestSender_StatsCountFailures(t *testing.T) {
	tr := &recordingTransport{err: errors.New("radio down")}
	s := NewSender(tr, 50*time.Millisecond, zap.NewNop())
	t0 := time.Unix(1000, 0)

	err := s.Send(t0, PauseMessage())
	assert.Error(t, err)

	tr.err = nil
	require.NoError(t, s.Send(t0.Add(time.Millisecond), PauseMessage()))

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.FailCount)
	assert.Equal(t, int64(1), stats.SuccessCount)
	assert.Equal(t, t0, stats.LastSendFail)
	assert.True(t, stats.LastMessage.IsPause())
}
