// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"fmt"

	"github.com/yeisme/docshelf/pkg/internal/service"
	"github.com/yeisme/docshelf/pkg/log"
	"github.com/yeisme/docshelf/pkg/scheduler"
)

// Scanner 定时任务需要的扫描能力，*service.LibraryService 满足该接口.
type Scanner interface {
	Scan(ctx context.Context, trigger string) (service.ScanReport, error)
}

// RegisterCronJobs 配置业务定时任务：
//   - 按 watch.rescan_cron 重新扫描所有来源目录
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, lib Scanner, rescanCron string) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if lib == nil {
		return fmt.Errorf("library service is nil")
	}

	return sched.AddCron(ctx, JobRescan, rescanCron, func(ctx context.Context) error {
		return runRescan(ctx, lib)
	})
}

// runRescan 执行一次扫描并记录结果.
func runRescan(ctx context.Context, lib Scanner) error {
	l := log.Logger().With().Str("job", JobRescan).Logger()

	report, err := lib.Scan(ctx, service.TriggerCron)
	if err != nil {
		l.Error().Err(err).Msg("rescan failed")
		return err
	}

	if len(report.Added) > 0 {
		l.Info().Str("run", report.RunID).Int("added", len(report.Added)).Msg("rescan added files")
	}

	return nil
}
