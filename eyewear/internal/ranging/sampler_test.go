package ranging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visionassist/common/link"
)

func newTestSampler(t0 time.Time) *Sampler {
	return NewSampler(DefaultThresholds(), time.Second, t0)
}

func TestSampler_InitialSentinel(t *testing.T) {
	s := newTestSampler(time.Unix(1000, 0))
	assert.Equal(t, SentinelDistance, s.Smoothed())
	assert.Equal(t, link.AlertClear, s.Level())
}

func TestSampler_ThreeIdenticalSamplesConverge(t *testing.T) {
	for _, raw := range []int{1, 250, 1299, 1300, 1999, 3999} {
		t0 := time.Unix(1000, 0)
		s := newTestSampler(t0)
		for i := 0; i < WindowSize; i++ {
			s.Ingest(raw, t0.Add(time.Duration(i*20)*time.Millisecond))
		}
		assert.Equal(t, raw, s.Smoothed(), "raw=%d", raw)
	}
}

func TestSampler_MovingAverage(t *testing.T) {
	t0 := time.Unix(1000, 0)
	s := newTestSampler(t0)

	s.Ingest(1200, t0)
	assert.Equal(t, (1200+5000+5000)/3, s.Smoothed())
	s.Ingest(1500, t0.Add(20*time.Millisecond))
	assert.Equal(t, (1200+1500+5000)/3, s.Smoothed())
	s.Ingest(1800, t0.Add(40*time.Millisecond))
	assert.Equal(t, 1500, s.Smoothed())
	// 最旧的采样被覆盖
	s.Ingest(900, t0.Add(60*time.Millisecond))
	assert.Equal(t, (900+1500+1800)/3, s.Smoothed())
}

func TestSampler_InvalidSamplesDiscarded(t *testing.T) {
	t0 := time.Unix(1000, 0)
	s := newTestSampler(t0)
	for i := 0; i < 3; i++ {
		s.Ingest(1000, t0)
	}

	for _, raw := range []int{0, -5, 4000, 8190} {
		level := s.Ingest(raw, t0.Add(10*time.Millisecond))
		assert.Equal(t, link.AlertCritical, level)
		assert.Equal(t, 1000, s.Smoothed())
	}

	accepted, rejected := s.Counts()
	assert.Equal(t, int64(3), accepted)
	assert.Equal(t, int64(4), rejected)
}

func TestSampler_StaleResetsToSentinel(t *testing.T) {
	t0 := time.Unix(1000, 0)
	s := newTestSampler(t0)
	for i := 0; i < 3; i++ {
		s.Ingest(1100, t0)
	}
	assert.Equal(t, link.AlertCritical, s.Level())

	assert.Equal(t, link.AlertCritical, s.Refresh(t0.Add(time.Second)))
	assert.Equal(t, 1100, s.Smoothed())

	assert.Equal(t, link.AlertClear, s.Refresh(t0.Add(1001*time.Millisecond)))
	assert.Equal(t, SentinelDistance, s.Smoothed())
}

func TestSampler_InvalidSamplesDoNotKeepReadingFresh(t *testing.T) {
	t0 := time.Unix(1000, 0)
	s := newTestSampler(t0)
	for i := 0; i < 3; i++ {
		s.Ingest(1100, t0)
	}
	for ms := 100; ms <= 1000; ms += 100 {
		s.Ingest(0, t0.Add(time.Duration(ms)*time.Millisecond))
	}
	assert.Equal(t, link.AlertClear, s.Ingest(0, t0.Add(1100*time.Millisecond)))
	assert.Equal(t, SentinelDistance, s.Smoothed())
}

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()
	cases := map[int]link.AlertLevel{
		1:    link.AlertCritical,
		1299: link.AlertCritical,
		1300: link.AlertWarning,
		1599: link.AlertWarning,
		1600: link.AlertCaution,
		1999: link.AlertCaution,
		2000: link.AlertClear,
		5000: link.AlertClear,
	}
	for distance, want := range cases {
		assert.Equal(t, want, th.Classify(distance), "distance=%d", distance)
	}
}
