// cmd/worker/startup.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"shopcms-backend/pkg/logger"
)

// BrokerProbe giữ kết nối tới Redis broker cho startup check và /ready
type BrokerProbe struct {
	client *redis.Client
}

func newBrokerProbe(cfg *Config) *BrokerProbe {
	return &BrokerProbe{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		}),
	}
}

// startServices verifies the broker, then exposes liveness/readiness probes.
// The returned probe must be closed on shutdown.
func startServices(cfg *Config) (*BrokerProbe, error) {
	logger.Info("ShopCMS worker starting", map[string]interface{}{
		"environment": cfg.Environment,
		"broker":      cfg.Redis.Addr,
	})

	probe := newBrokerProbe(cfg)
	if err := probe.Ping(context.Background()); err != nil {
		probe.Close()
		return nil, fmt.Errorf("redis broker unreachable: %w", err)
	}
	logger.Info("Broker reachable", nil)

	go probe.serve(cfg.HealthPort)
	return probe, nil
}

func (p *BrokerProbe) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.client.Ping(ctx).Err()
}

func (p *BrokerProbe) Close() {
	if err := p.client.Close(); err != nil {
		logger.Error("[Health] Failed to close broker probe", err)
	}
}

func (p *BrokerProbe) serve(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, `{"status":"UP","service":"shopcms-worker"}`)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		// Not ready khi mất broker: asynq không thể nhận task
		if err := p.Ping(r.Context()); err != nil {
			writeProbe(w, http.StatusServiceUnavailable, `{"status":"NOT_READY"}`)
			return
		}
		writeProbe(w, http.StatusOK, `{"status":"READY"}`)
	})

	logger.Info("[Health] Probe server listening", map[string]interface{}{"port": port})
	if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("[Health] Probe server stopped", err)
	}
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
