// Package metrics exposes the signal engine's running state as Prometheus
// collectors: tone queue depth and water-mark crossings, tones played, and
// key-value transitions, served over a plain net/http handler.
//
// Grounded on the promauto registration idiom used throughout
// madpsy-ka9q_ubersdr/prometheus.go, with the collector set trimmed to the
// components this engine actually has.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/ColonelBlimp/cwengine/internal/tonequeue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the engine reports. Construct
// once with New and share across generator/receiver instances, labeling by
// generator label or receiver name where a metric can have more than one
// source.
type Metrics struct {
	QueueLength     *prometheus.GaugeVec
	QueueCapacity   *prometheus.GaugeVec
	HighWaterEvents *prometheus.CounterVec
	LowWaterEvents  *prometheus.CounterVec
	TonesPlayed     *prometheus.CounterVec
	KeyTransitions  *prometheus.CounterVec
	CharactersRecvd *prometheus.CounterVec
	ReceiverWPM     *prometheus.GaugeVec
	ReceiverRMSUs   *prometheus.GaugeVec
}

// New creates and registers the engine's collectors against the default
// Prometheus registry. Use NewWithRegisterer to register against a private
// registry instead (tests, or a process hosting more than one engine
// instance).
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers the engine's collectors against
// reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueLength: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cwengine_queue_length",
				Help: "Number of tones currently queued for playback.",
			},
			[]string{"generator"},
		),
		QueueCapacity: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cwengine_queue_capacity",
				Help: "Hard capacity of the tone queue.",
			},
			[]string{"generator"},
		),
		HighWaterEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cwengine_queue_high_water_total",
				Help: "Number of times Enqueue was rejected with QueueFull.",
			},
			[]string{"generator"},
		),
		LowWaterEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cwengine_queue_low_water_total",
				Help: "Number of times the queue length crossed below the low-water mark.",
			},
			[]string{"generator"},
		),
		TonesPlayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cwengine_tones_played_total",
				Help: "Number of tones dequeued and sounded by the worker.",
			},
			[]string{"generator"},
		),
		KeyTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cwengine_key_transitions_total",
				Help: "Number of Open<->Closed key-value transitions reported.",
			},
			[]string{"generator", "value"},
		),
		CharactersRecvd: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cwengine_characters_received_total",
				Help: "Number of characters decoded by the receiver.",
			},
			[]string{"receiver"},
		),
		ReceiverWPM: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cwengine_receiver_wpm",
				Help: "Receiver's current tracked speed in words per minute.",
			},
			[]string{"receiver"},
		),
		ReceiverRMSUs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cwengine_receiver_rms_microseconds",
				Help: "Overall RMS timing deviation reported by the receiver's statistics.",
			},
			[]string{"receiver"},
		),
	}
}

// ReportQueueLevel updates the queue-depth gauges for generator label,
// meant to be polled periodically (e.g. by a ticker alongside the worker
// loop) rather than wired into the queue's own hot path.
func (m *Metrics) ReportQueueLevel(label string, q *tonequeue.Queue) {
	m.QueueLength.WithLabelValues(label).Set(float64(q.Length()))
	m.QueueCapacity.WithLabelValues(label).Set(float64(q.Capacity()))
}

// Server serves the collected metrics over HTTP at /metrics.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to addr. Start must be called to actually
// listen.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start begins listening in the background. Errors other than
// http.ErrServerClosed are logged.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

