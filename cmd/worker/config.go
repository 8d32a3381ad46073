package main

import (
	"github.com/hibiken/asynq"

	"shopcms-backend/internal/config"
	"shopcms-backend/pkg/logger"
)

// Config holds the worker-specific settings derived from the app config
type Config struct {
	Redis       asynq.RedisClientOpt
	Jobs        config.JobsConfig
	HealthPort  string
	Environment string
}

// loadConfig maps the shared config onto the worker
func loadConfig(appCfg *config.Config) *Config {
	cfg := &Config{
		Redis: asynq.RedisClientOpt{
			Addr:     appCfg.Redis.Host,
			Password: appCfg.Redis.Password,
			DB:       appCfg.Redis.DB,
		},
		Jobs:        appCfg.Jobs,
		HealthPort:  appCfg.Jobs.HealthPort,
		Environment: appCfg.App.Environment,
	}

	logger.Info("Worker config loaded", map[string]interface{}{
		"redis":       cfg.Redis.Addr,
		"concurrency": cfg.Jobs.Concurrency,
		"sweep_cron":  cfg.Jobs.ExpirySweepCron,
	})
	return cfg
}
