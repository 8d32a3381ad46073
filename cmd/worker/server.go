package main

import (
	"context"

	"github.com/hibiken/asynq"

	"shopcms-backend/internal/shared"
	"shopcms-backend/pkg/logger"
)

// asynqServer wraps asynq.Server
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates the Asynq server and starts consuming
func setupAsynqServer(cfg *Config, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Queues: map[string]int{
				shared.QueueDefault:     10,
				shared.QueueMaintenance: 5,
			},
			Concurrency:     cfg.Jobs.Concurrency,
			ShutdownTimeout: shutdownTimeout,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				logger.ErrorWithFields("[Asynq] Task failed", err, map[string]interface{}{
					"type":    task.Type(),
					"retried": retried,
				})
			}),
		},
	)

	go func() {
		logger.Info("[Worker] Starting...", nil)
		if err := srv.Run(mux); err != nil {
			logger.Fatal("[Worker] Failed", err)
		}
	}()

	return &asynqServer{Server: srv}
}

// Shutdown waits for in-flight tasks up to shutdownTimeout
func (s *asynqServer) Shutdown() {
	logger.Info("[Worker] Shutting down...", map[string]interface{}{
		"timeout": shutdownTimeout.String(),
	})
	s.Server.Shutdown()
}
