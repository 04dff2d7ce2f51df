package stats

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 资金流向
const (
	DirectionLocked    = "locked"
	DirectionWithdrawn = "withdrawn"
	DirectionMinted    = "minted"
	DirectionMoved     = "transferred"
)

type Stats struct {
	statsLock     sync.RWMutex
	apiCallCounts map[string]uint64

	registry  *prometheus.Registry
	apiCalls  *prometheus.CounterVec
	txs       *prometheus.CounterVec
	lamports  *prometheus.CounterVec
	execute   *prometheus.HistogramVec
	openVault prometheus.Gauge
}

func NewStats() *Stats {
	s := &Stats{
		apiCallCounts: make(map[string]uint64),
		registry:      prometheus.NewRegistry(),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelock_api_calls_total",
			Help: "HTTP API calls by handler.",
		}, []string{"api"}),
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelock_txs_total",
			Help: "Executed transactions by kind and receipt status.",
		}, []string{"kind", "status"}),
		lamports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelock_lamports_total",
			Help: "Lamports moved by successful transactions, by direction.",
		}, []string{"direction"}),
		execute: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timelock_tx_execute_seconds",
			Help:    "Latency of dry-run plus commit per transaction kind.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		openVault: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timelock_vaults_open",
			Help: "Vaults holding a non-zero locked amount.",
		}),
	}
	s.registry.MustRegister(s.apiCalls, s.txs, s.lamports, s.execute, s.openVault)
	return s
}

// 记录API调用
func (h *Stats) RecordAPICall(apiName string) {
	h.statsLock.Lock()
	if h.apiCallCounts == nil {
		h.apiCallCounts = make(map[string]uint64)
	}
	h.apiCallCounts[apiName]++
	h.statsLock.Unlock()

	h.apiCalls.WithLabelValues(apiName).Inc()
}

// 获取API调用统计
func (h *Stats) GetAPICallStats() map[string]uint64 {
	h.statsLock.RLock()
	defer h.statsLock.RUnlock()

	// 复制统计数据
	stats := make(map[string]uint64)
	for api, count := range h.apiCallCounts {
		stats[api] = count
	}
	return stats
}

// RecordTx 一笔交易执行完毕
func (h *Stats) RecordTx(kind, status string, elapsed time.Duration) {
	h.txs.WithLabelValues(kind, status).Inc()
	h.execute.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordLamports 成功交易移动的金额
func (h *Stats) RecordLamports(direction string, amount uint64) {
	if amount == 0 {
		return
	}
	h.lamports.WithLabelValues(direction).Add(float64(amount))
}

// VaultOpened / VaultReleased 维护在途 vault 数量
func (h *Stats) VaultOpened() { h.openVault.Inc() }

func (h *Stats) VaultReleased() { h.openVault.Dec() }

// SetOpenVaults 启动时按库里的记录重置在途数量
func (h *Stats) SetOpenVaults(n int) { h.openVault.Set(float64(n)) }

// Registry 私有 registry，测试里用 testutil 读取
func (h *Stats) Registry() *prometheus.Registry {
	return h.registry
}

// Handler /metrics
func (h *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry})
}
