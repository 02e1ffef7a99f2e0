package cron

import (
	"Portal/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	unreadReconcileJob *job.UnreadReconcileJob
	reconcileSpec      string
}

func NewCronManager(unreadReconcileJob *job.UnreadReconcileJob, reconcileSpec string) *Manager {
	if reconcileSpec == "" {
		reconcileSpec = "@every 30s"
	}
	return &Manager{
		engine:             cron.New(cron.WithSeconds()),
		unreadReconcileJob: unreadReconcileJob,
		reconcileSpec:      reconcileSpec,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	// 上一轮未结束时跳过本轮
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(s.unreadReconcileJob)
	if _, err := s.engine.AddJob(s.reconcileSpec, wrapped); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
