// Package metrics exposes Prometheus counters/gauges for the comms core.
// This is ambient instrumentation: none of it is part of the client-facing
// API, but every comms-core worker reports through it, the way a can-bus
// bridge instruments its TCP/serial/SocketCAN paths.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gpulayers/device-comms/internal/logging"
)

var (
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_frames_sent_total",
		Help: "Total frames (header+payload) written to the wire.",
	})
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_frames_received_total",
		Help: "Total frames (header+payload) read from the wire.",
	})
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "comms_queue_depth",
		Help: "Approximate depth of the outbound FIFO task queue.",
	})
	ParkedTXRX = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "comms_parked_tx_rx",
		Help: "Number of TX_RX messages currently parked awaiting a response.",
	})
	TXErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_tx_errors_total",
		Help: "Total transmit failures (partial or failed socket writes).",
	})
	UnknownResponseIDs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_unknown_response_id_total",
		Help: "Total inbound frames whose id matched no parked TX_RX message.",
	})
	RegistryMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comms_registry_misses_total",
		Help: "Total endpoint_id lookups for a name absent from the registry.",
	})
)

var (
	localFramesSent       uint64
	localFramesReceived   uint64
	localTXErrors         uint64
	localUnknownResponses uint64
	localRegistryMisses   uint64

	readinessMu sync.RWMutex
	readinessFn func() bool
)

func IncFramesSent()     { FramesSent.Inc(); atomic.AddUint64(&localFramesSent, 1) }
func IncFramesReceived() { FramesReceived.Inc(); atomic.AddUint64(&localFramesReceived, 1) }
func IncTXError()        { TXErrors.Inc(); atomic.AddUint64(&localTXErrors, 1) }

func IncUnknownResponseID() {
	UnknownResponseIDs.Inc()
	atomic.AddUint64(&localUnknownResponses, 1)
}

func IncRegistryMiss() {
	RegistryMisses.Inc()
	atomic.AddUint64(&localRegistryMisses, 1)
}

func SetQueueDepth(n int) { QueueDepth.Set(float64(n)) }
func SetParkedTXRX(n int) { ParkedTXRX.Set(float64(n)) }

// Snapshot is a cheap copy of local counters, for logging without scraping
// Prometheus in-process.
type Snapshot struct {
	FramesSent         uint64
	FramesReceived     uint64
	TXErrors           uint64
	UnknownResponseIDs uint64
	RegistryMisses     uint64
}

// Snap returns the current local counter values.
func Snap() Snapshot {
	return Snapshot{
		FramesSent:         atomic.LoadUint64(&localFramesSent),
		FramesReceived:     atomic.LoadUint64(&localFramesReceived),
		TXErrors:           atomic.LoadUint64(&localTXErrors),
		UnknownResponseIDs: atomic.LoadUint64(&localUnknownResponses),
		RegistryMisses:     atomic.LoadUint64(&localRegistryMisses),
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function, defaulting to true.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}
