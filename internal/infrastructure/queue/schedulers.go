package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"shopcms-backend/internal/config"
	"shopcms-backend/internal/shared"
	"shopcms-backend/internal/shared/utils"
	"shopcms-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobsConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobsConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerExpireRulesJob()
}

// ================================================
// JOB: Expire Rules (JOB_EXPIRY_SWEEP_CRON, default every 10 minutes)
// ================================================
// Eligibility already checks end_date at evaluation time; the sweep only
// keeps is_active and the admin list in sync.
func (s *Scheduler) registerExpireRulesJob() error {
	task, err := utils.NewTask(shared.TypeExpireRules, shared.ExpireRulesPayload{})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Register(
		s.jobConfig.ExpirySweepCron,
		task,
		asynq.Queue(shared.QueueMaintenance),
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ExpireRules job", err)
		return err
	}

	logger.Info("Registered ExpireRules job", map[string]interface{}{
		"cron": s.jobConfig.ExpirySweepCron,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
