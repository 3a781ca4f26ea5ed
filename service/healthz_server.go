package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

type HealthzServer struct {
	ctx     context.Context
	server  *http.Server
	started time.Time
}

type healthzResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	server := &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
	h.server = server
	h.ctx = ctx
	h.started = time.Now()
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	return h.server.Shutdown(h.ctx)
}

// Handle reports that the campaign process is alive. The endpoint exists for
// campaigns long enough to sit behind a watchdog.
func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	resp := healthzResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("Failed to write health check response", "err", err)
	}
}
