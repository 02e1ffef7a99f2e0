package job

import (
	"Portal/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// AdminReconciler 向在线管理员重新推送未读汇总
type AdminReconciler interface {
	ReconcileAdmins(ctx context.Context) int
}

// UnreadReconcileJob 周期性校准管理员未读数，兜底可能丢失的实时推送
type UnreadReconcileJob struct {
	reconciler AdminReconciler
	timeout    time.Duration
}

func NewUnreadReconcileJob(reconciler AdminReconciler) *UnreadReconcileJob {
	return &UnreadReconcileJob{
		reconciler: reconciler,
		timeout:    20 * time.Second,
	}
}

func (s *UnreadReconcileJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	pushed := s.reconciler.ReconcileAdmins(ctx)
	if pushed > 0 {
		log.InfoContext(ctx, "unread reconcile finished", "admins", pushed, "latency", time.Since(start))
	}
}
