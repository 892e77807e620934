package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveStage("prove", "counter", "", start)
	m.ObserveStage("send_proof", "counter", "consistency", start)
	m.ObserveStage("send_proof", "counter", "consistency", start)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("send_proof", "consistency")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestObserveNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("prove", "c", "proving", time.Now())
		m.ObserveProof(time.Now())
		m.ObserveVerify(true)
		m.ObserveSettlement("ok")
	})
}

func TestMemoryDoctorSample(t *testing.T) {
	m := New()
	d := NewMemoryDoctor(MemoryDoctorConfig{SampleInterval: 10 * time.Millisecond}, m, nil)

	s := d.SampleOnce()
	require.NotZero(t, s.HeapAlloc)
	assert.Greater(t, s.NumGoroutine, 0)
	assert.Equal(t, float64(s.NumGoroutine), testutil.ToFloat64(m.Goroutines))

	d.Start(t.Context())
	time.Sleep(30 * time.Millisecond)
	d.Stop()
	d.Stop()
	assert.False(t, d.Last().Time.IsZero())
}
