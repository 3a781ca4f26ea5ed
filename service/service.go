// Package service hosts the optional healthz and metrics endpoints exposed
// during long-running campaigns.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/dapaulid/stressy/metrics"
)

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
}

func New() *Service {
	s := &Service{
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
	}
	return s
}

// Start serves healthz and prometheus metrics on the given addresses. Either
// address may be empty to disable that endpoint.
func (s *Service) Start(ctx context.Context, healthzAddr, metricsAddr string) {
	log.Info("service starting")

	if healthzAddr != "" {
		go func() {
			addr := normalizeAddr(healthzAddr)
			log.Info("starting healthz server", "addr", addr)
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("error starting healthz server", err)
			}
		}()
	}

	if metricsAddr != "" {
		go func() {
			addr := normalizeAddr(metricsAddr)
			log.Info("starting metrics server", "addr", addr)
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	if s.Healthz.server != nil {
		_ = s.Healthz.Shutdown()
		log.Info("healthz stopped")
	}

	if s.Metrics.server != nil {
		_ = s.Metrics.Shutdown()
		log.Info("metrics stopped")
	}

	log.Info("service stopped")
}

// normalizeAddr fills in a wildcard host for bare port specs like ":7300".
func normalizeAddr(addr string) string {
	if host, port, err := net.SplitHostPort(addr); err == nil && host == "" {
		return net.JoinHostPort("0.0.0.0", port)
	}
	return addr
}
