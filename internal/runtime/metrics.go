package runtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors updated by the dispatch chain.
type Metrics struct {
	messages *prometheus.CounterVec
	dispatch *prometheus.HistogramVec
	lastID   prometheus.Gauge
}

// NewMetrics registers the runtime collectors on reg. Collectors already present
// on reg are reused, so several runtimes may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New("metrics registerer is required")
	}

	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glomers",
		Name:      "messages_total",
		Help:      "Messages dispatched, by protocol stage, message type and outcome.",
	}, []string{"stage", "type", "outcome"})
	dispatch := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "glomers",
		Name:      "dispatch_seconds",
		Help:      "Time spent decoding, handling and encoding one message.",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"type"})
	lastID := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "glomers",
		Name:      "last_msg_id",
		Help:      "msg_id of the most recent reply.",
	})

	var err error
	if messages, err = register(reg, messages); err != nil {
		return nil, err
	}
	if dispatch, err = register(reg, dispatch); err != nil {
		return nil, err
	}
	if lastID, err = register(reg, lastID); err != nil {
		return nil, err
	}

	return &Metrics{messages: messages, dispatch: dispatch, lastID: lastID}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveDispatch records one dispatch. A nil receiver does nothing.
func (m *Metrics) ObserveDispatch(stage, msgType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if msgType == "" {
		msgType = "unknown"
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.messages.WithLabelValues(stage, msgType, outcome).Inc()
	m.dispatch.WithLabelValues(msgType).Observe(elapsed.Seconds())
}

// SetLastID publishes the latest reply id.
func (m *Metrics) SetLastID(id uint64) {
	if m == nil {
		return
	}
	m.lastID.Set(float64(id))
}

// metricsServer exposes a gatherer on /metrics until shutdown.
type metricsServer struct {
	srv    *http.Server
	addr   string
	logger loggingpkg.ServiceLogger
	done   chan struct{}
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer, logger loggingpkg.ServiceLogger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &metricsServer{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   ln.Addr().String(),
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", err, loggingpkg.LogFields{"addr": addr})
		}
	}()
	logger.Info("serving metrics", loggingpkg.LogFields{"addr": s.addr})
	return s, nil
}

// Addr is the bound listener address.
func (s *metricsServer) Addr() string {
	return s.addr
}

func (s *metricsServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("metrics server shutdown", err, nil)
	}
	<-s.done
}
