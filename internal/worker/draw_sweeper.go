package worker

import (
	"context"
	"sync"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/common/logger"
	"github.com/reportyao/luckymart-tj-sub011/internal/config"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	"github.com/reportyao/luckymart-tj-sub011/internal/model"
	"github.com/reportyao/luckymart-tj-sub011/internal/service"
	"github.com/reportyao/luckymart-tj-sub011/internal/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 扫描兜底参数默认值（可由配置覆盖）
const (
	defaultSweepInterval   = 30 * time.Second
	defaultFullStuckSec    = 60  // full 超过该秒数仍未被认领，视为触发丢失
	defaultDrawingStuckSec = 120 // drawing 超过该秒数仍未完成，视为认领者崩溃
	sweepBatchSize         = 20
)

// StartDrawSweeper 启动开奖扫描器：
// 周期扫描停留在 full / drawing 状态过久的期次并重触发开奖。
// 异步触发丢失（进程崩溃、MQ 抖动）时由这里兜底，保证售罄期次最终都会开奖。
func StartDrawSweeper(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)

	interval := defaultSweepInterval
	fullStuck := int64(defaultFullStuckSec) * 1000
	drawingStuck := int64(defaultDrawingStuckSec) * 1000
	if cfg := config.GetCurrent(); cfg != nil {
		if cfg.Lottery.SweepIntervalSec > 0 {
			interval = time.Duration(cfg.Lottery.SweepIntervalSec) * time.Second
		}
		if cfg.Lottery.FullStuckSec > 0 {
			fullStuck = int64(cfg.Lottery.FullStuckSec) * 1000
		}
		if cfg.Lottery.DrawingStuckSec > 0 {
			drawingStuck = int64(cfg.Lottery.DrawingStuckSec) * 1000
		}
	}

	drawSvc := service.NewDrawService()

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("[sweeper] started",
			zap.Duration("interval", interval),
			zap.Int64("full_stuck_ms", fullStuck),
			zap.Int64("drawing_stuck_ms", drawingStuck))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepOnce(ctx, drawSvc, state.StatusFull, fullStuck)
				sweepOnce(ctx, drawSvc, state.StatusDrawing, drawingStuck)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, drawSvc service.DrawService, status int8, olderThanMs int64) {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	rows, err := model.ListStuckRounds(c, infmysql.SQLX(), status, olderThanMs, sweepBatchSize)
	cancel()
	if err != nil {
		logger.Warn("[sweeper] list stuck rounds failed",
			zap.Int8("status", status), zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	logger.Info("[sweeper] found stuck rounds",
		zap.Int8("status", status), zap.Int("count", len(rows)))

	for _, row := range rows {
		traceID := uuid.New().String()
		tc, tcancel := context.WithTimeout(ctx, 15*time.Second)
		err := drawSvc.TriggerDraw(tc, row.RoundID, "sweep", "", traceID)
		tcancel()
		if err != nil {
			logger.Warn("[sweeper] re-trigger draw failed",
				zap.String("round_id", row.RoundID),
				zap.String("trace_id", traceID),
				zap.Error(err))
		}
	}
}
