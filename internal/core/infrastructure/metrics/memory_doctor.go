package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pbnjay/memory"
	"go.uber.org/zap"
)

// MemoryDoctorConfig MemoryDoctor 配置
type MemoryDoctorConfig struct {
	// SampleInterval 采样间隔
	SampleInterval time.Duration
	// LowFreeMemoryBytes 系统空闲内存低于该值时告警，证明生成最吃内存
	LowFreeMemoryBytes uint64
	// GoroutineWarnThreshold Goroutine 数量告警阈值
	GoroutineWarnThreshold int
}

// DefaultMemoryDoctorConfig 返回默认配置
func DefaultMemoryDoctorConfig() MemoryDoctorConfig {
	return MemoryDoctorConfig{
		SampleInterval:         10 * time.Second,
		LowFreeMemoryBytes:     512 << 20,
		GoroutineWarnThreshold: 5000,
	}
}

// Sample 一次采样结果
type Sample struct {
	Time         time.Time `json:"time"`
	HeapAlloc    uint64    `json:"heap_alloc"`
	FreeMemory   uint64    `json:"free_memory"`
	TotalMemory  uint64    `json:"total_memory"`
	NumGoroutine int       `json:"num_goroutine"`
}

// MemoryDoctor 周期性采样进程与系统内存，写入指标并在压力过大时告警
type MemoryDoctor struct {
	cfg     MemoryDoctorConfig
	metrics *Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	last   Sample
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMemoryDoctor 创建 MemoryDoctor
func NewMemoryDoctor(cfg MemoryDoctorConfig, m *Metrics, logger *zap.Logger) *MemoryDoctor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultMemoryDoctorConfig().SampleInterval
	}
	return &MemoryDoctor{cfg: cfg, metrics: m, logger: logger}
}

// SampleOnce 立即采样一次
func (d *MemoryDoctor) SampleOnce() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		Time:         time.Now(),
		HeapAlloc:    ms.HeapAlloc,
		FreeMemory:   memory.FreeMemory(),
		TotalMemory:  memory.TotalMemory(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if d.metrics != nil {
		d.metrics.HeapAllocBytes.Set(float64(s.HeapAlloc))
		d.metrics.FreeMemoryBytes.Set(float64(s.FreeMemory))
		d.metrics.Goroutines.Set(float64(s.NumGoroutine))
	}

	if s.FreeMemory > 0 && s.FreeMemory < d.cfg.LowFreeMemoryBytes {
		d.logger.Warn("⚠️ 系统空闲内存不足，证明生成可能被拒绝",
			zap.Uint64("free_bytes", s.FreeMemory),
			zap.Uint64("threshold_bytes", d.cfg.LowFreeMemoryBytes))
	}
	if d.cfg.GoroutineWarnThreshold > 0 && s.NumGoroutine > d.cfg.GoroutineWarnThreshold {
		d.logger.Warn("Goroutine 数量超过阈值",
			zap.Int("goroutines", s.NumGoroutine),
			zap.Int("threshold", d.cfg.GoroutineWarnThreshold))
	}

	d.mu.Lock()
	d.last = s
	d.mu.Unlock()
	return s
}

// Last 返回最近一次采样
func (d *MemoryDoctor) Last() Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Start 启动采样循环
func (d *MemoryDoctor) Start(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.cfg.SampleInterval)
		defer ticker.Stop()

		d.SampleOnce()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				d.SampleOnce()
			}
		}
	}()
}

// Stop 停止采样循环
func (d *MemoryDoctor) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
