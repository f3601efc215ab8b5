package job

import (
	"context"
	"log"
	"time"

	"investledger/internal/config"
	"investledger/internal/service"
)

// AccrualJob 收益发放调度器
//
// 按固定周期触发一轮 RunPass。引擎本身幂等，
// 周期重叠或进程重启导致的重复触发不会重复发放
type AccrualJob struct {
	accrual  *service.AccrualService
	stopCh   chan struct{}
	interval time.Duration
}

func NewAccrualJob(accrual *service.AccrualService, cfg *config.Config) *AccrualJob {
	return &AccrualJob{
		accrual:  accrual,
		stopCh:   make(chan struct{}),
		interval: cfg.Business.AccrualInterval(),
	}
}

func (j *AccrualJob) Start(ctx context.Context) {
	log.Printf("[AccrualJob] 收益发放任务启动, 周期 %s", j.interval)

	// 启动先跑一轮，补上进程停机期间错过的触发
	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AccrualJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[AccrualJob] 任务停止")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *AccrualJob) Stop() {
	close(j.stopCh)
}

func (j *AccrualJob) runOnce(ctx context.Context) {
	summary, err := j.accrual.RunPass(ctx, time.Now())
	if err != nil {
		// 已提交的发放不受影响，下一轮从中断处继续
		log.Printf("[AccrualJob] 本轮中止: %v", err)
		return
	}
	if summary.ProcessedCount+summary.MaturedCount > 0 {
		log.Printf("[AccrualJob] 日收益 %d 笔, 到期结算 %d 笔, 入账 %d",
			summary.ProcessedCount, summary.MaturedCount, summary.TotalPaid)
	}
}
