// Package metrics 提供节点与证明流水线的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zkcontract"

// Metrics 聚合所有业务指标，使用独立 Registry 避免污染全局默认注册表
type Metrics struct {
	Registry *prometheus.Registry

	// 流水线
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	// 证明
	ProofsGenerated prometheus.Counter
	ProveDuration   prometheus.Histogram
	ProofsVerified  *prometheus.CounterVec

	// 账本
	Settlements      *prometheus.CounterVec
	ContractsTotal   prometheus.Gauge
	BlobTransactions prometheus.Counter

	// 运行时
	HeapAllocBytes  prometheus.Gauge
	FreeMemoryBytes prometheus.Gauge
	Goroutines      prometheus.Gauge
}

// New 创建指标集合并注册到新的 Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each proving pipeline stage",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage", "contract"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Pipeline failures by stage and error kind",
		}, []string{"stage", "kind"}),
		ProofsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prover",
			Name:      "proofs_generated_total",
			Help:      "Number of proofs produced",
		}),
		ProveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prover",
			Name:      "prove_duration_seconds",
			Help:      "Groth16 proving time",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		ProofsVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      "proofs_verified_total",
			Help:      "Proof verifications by result",
		}, []string{"result"}),
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "settlements_total",
			Help:      "Proof transactions by settlement result",
		}, []string{"result"}),
		ContractsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "contracts",
			Help:      "Number of registered contracts",
		}),
		BlobTransactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "blob_transactions_total",
			Help:      "Accepted blob transactions",
		}),
		HeapAllocBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "heap_alloc_bytes",
			Help:      "Go heap allocation at last sample",
		}),
		FreeMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "system_free_memory_bytes",
			Help:      "Free system memory at last sample",
		}),
		Goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runtime",
			Name:      "goroutines",
			Help:      "Goroutine count at last sample",
		}),
	}
}

// ObserveStage 记录一个流水线阶段的耗时，kind 非空时计入失败
func (m *Metrics) ObserveStage(stage, contract, kind string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, contract).Observe(time.Since(started).Seconds())
	if kind != "" {
		m.StageFailures.WithLabelValues(stage, kind).Inc()
	}
}

// ObserveProof 记录一次证明生成
func (m *Metrics) ObserveProof(started time.Time) {
	if m == nil {
		return
	}
	m.ProofsGenerated.Inc()
	m.ProveDuration.Observe(time.Since(started).Seconds())
}

// ObserveVerify 记录一次验证结果
func (m *Metrics) ObserveVerify(ok bool) {
	if m == nil {
		return
	}
	m.ProofsVerified.WithLabelValues(resultLabel(ok)).Inc()
}

// ObserveSettlement 记录证明交易的结算结果
func (m *Metrics) ObserveSettlement(result string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(result).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}
