// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	ctxPkg "github.com/yeisme/linkvault/pkg/context"
	"github.com/yeisme/linkvault/pkg/internal/service"
	"github.com/yeisme/linkvault/pkg/internal/storage"
	"github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每 10 分钟将已过期但仍激活的链接置为停用
//   - 每天 03:30 从文件表重算所有链接的聚合计数，修正增量漂移
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	// 每 10 分钟停用过期链接
	_ = sched.AddCron(JobLinkDeactivateExpired, CronLinkDeactivateExpired, func(ctx context.Context) {
		runDeactivateExpired(ctx)
	}, baseCtx)

	// 每天 03:30 全量对账
	_ = sched.AddCron(JobLinkStatsRecompute, CronLinkStatsRecompute, func(ctx context.Context) {
		runStatsRecompute(ctx)
	}, baseCtx)

	return nil
}

// runDeactivateExpired 批量停用已过期链接。
func runDeactivateExpired(ctx context.Context) {
	l := log.Logger().With().Str("job", JobLinkDeactivateExpired).Logger()

	svc := service.NewLinkService(ctx)

	n, err := svc.DeactivateExpired(ctx, time.Now())
	if err != nil {
		l.Error().Err(err).Msg("deactivate expired links failed")
		return
	}

	if n > 0 {
		l.Info().Int64("affected", n).Msg("deactivated expired links")
	}
}

// runStatsRecompute 从文件表重算所有链接的聚合计数。
func runStatsRecompute(ctx context.Context) {
	l := log.Logger().With().Str("job", JobLinkStatsRecompute).Logger()

	svc := service.NewStatsService(ctx)

	n, err := svc.RecomputeAllLinkStats(ctx)
	if err != nil {
		l.Error().Err(err).Msg("recompute link stats failed")
		return
	}

	l.Info().Int("links", n).Msg("link stats recomputed")
}
