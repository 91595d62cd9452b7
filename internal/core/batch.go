package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/classifier"
	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/RecoveryAshes/ProductFinder/internal/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// SourceFactory 为每个并发流程创建独占的链接来源
type SourceFactory func() crawlers.LinkSource

// BatchRunner 并发处理多个站点
type BatchRunner struct {
	config       *Config
	newSource    SourceFactory
	classifier   classifier.Classifier
	monitor      *crawlers.ResourceMonitor
	showProgress bool
}

// BatchSummary 批量运行摘要, Results 顺序与输入一致
type BatchSummary struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalWebsites int
	Succeeded     int
	Failed        int
	Cancelled     int
	TotalProducts int
	Results       []models.WebsiteResult
}

// Duration 总耗时(秒)
func (s *BatchSummary) Duration() float64 {
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// Report 转换为可落盘的运行报告
func (s *BatchSummary) Report(runID string, harvest models.HarvestConfig) *models.RunReport {
	return &models.RunReport{
		RunID:         runID,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Duration:      s.Duration(),
		Mode:          harvest.Mode,
		TotalWebsites: s.TotalWebsites,
		Succeeded:     s.Succeeded,
		Failed:        s.Failed,
		Cancelled:     s.Cancelled,
		TotalProducts: s.TotalProducts,
		Websites:      s.Results,
		Config:        harvest,
	}
}

// NewBatchRunner 创建批量运行器, monitor 为 nil 时只按配置的并发数限制
func NewBatchRunner(config *Config, newSource SourceFactory, cls classifier.Classifier, monitor *crawlers.ResourceMonitor, showProgress bool) *BatchRunner {
	return &BatchRunner{
		config:       config,
		newSource:    newSource,
		classifier:   cls,
		monitor:      monitor,
		showProgress: showProgress,
	}
}

// concurrency 配置并发数与资源允许的会话数取较小值
func (br *BatchRunner) concurrency() int {
	n := br.config.Pipeline.Concurrency
	if br.monitor != nil {
		n = min(n, br.monitor.CalculateMaxSessions())
	}
	return max(n, 1)
}

// Run 处理站点列表
// continue_on_error=false 时, 首个失败站点只取消尚未开始的站点, 进行中的站点照常完成;
// ctx 取消(如 SIGINT)同时作用于进行中的站点
func (br *BatchRunner) Run(ctx context.Context, websites []string) *BatchSummary {
	summary := &BatchSummary{
		StartTime:     time.Now(),
		TotalWebsites: len(websites),
		Results:       make([]models.WebsiteResult, len(websites)),
	}

	limit := br.concurrency()
	utils.Infof("🚀 开始处理 %d 个站点 (并发 %d, 模式 %s)", len(websites), limit, br.config.Harvest.Mode)

	var (
		bar *progressbar.ProgressBar
		mu  sync.Mutex
	)
	if br.showProgress {
		bar = utils.NewProgressBar(len(websites), "处理站点")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, website := range websites {
		g.Go(func() error {
			res := br.runOne(gctx, ctx, website)

			mu.Lock()
			summary.Results[i] = res
			if bar != nil {
				_ = bar.Add(1)
			}
			mu.Unlock()

			if res.Status == models.TaskStatusFailed && !br.config.Pipeline.ContinueOnError {
				return fmt.Errorf("站点 %s 失败: %s", website, res.ErrorMessage)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		utils.Warnf("批量处理中止 (continue_on_error=false): %v", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	summary.EndTime = time.Now()
	for _, res := range summary.Results {
		switch res.Status {
		case models.TaskStatusCompleted:
			summary.Succeeded++
			summary.TotalProducts += len(res.Products)
		case models.TaskStatusCancelled:
			summary.Cancelled++
		default:
			summary.Failed++
		}
	}

	printSummary(summary)
	return summary
}

// runOne 处理单个站点, 捕获 panic 作为失败
// startCtx 只决定站点是否开始, 开始后由 ctx 控制
func (br *BatchRunner) runOne(startCtx, ctx context.Context, website string) (res models.WebsiteResult) {
	res = models.WebsiteResult{
		Website:   website,
		GridPages: []string{},
		Products:  []string{},
	}

	if startCtx.Err() != nil {
		res.Status = models.TaskStatusCancelled
		res.ErrorMessage = "已取消"
		return res
	}

	if br.monitor != nil {
		if ok, reason := br.monitor.CheckResourceAvailability(); !ok {
			utils.Warnf("[%s] 系统资源紧张: %s", website, reason)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("[%s] 处理时发生panic: %v", website, r)
			res.Status = models.TaskStatusFailed
			res.ErrorMessage = fmt.Sprintf("panic: %v", r)
		}
	}()

	finder := NewFinder(br.newSource(), br.classifier, br.config.Harvest, br.config.Pipeline, br.config.Classifier.BatchSize)
	return finder.Find(ctx, website)
}

// printSummary 打印批量运行摘要
func printSummary(summary *BatchSummary) {
	utils.Infof("==================================================")
	utils.Infof("📊 批量处理摘要")
	utils.Infof("==================================================")
	utils.Infof("总站点数: %d", summary.TotalWebsites)
	utils.Infof("✅ 成功: %d", summary.Succeeded)
	utils.Infof("❌ 失败: %d", summary.Failed)
	if summary.Cancelled > 0 {
		utils.Infof("⏹  取消: %d", summary.Cancelled)
	}
	utils.Infof("📦 商品总数: %d", summary.TotalProducts)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.Duration())
	utils.Infof("==================================================")

	if summary.Failed > 0 {
		utils.Warnf("失败的站点:")
		for _, res := range summary.Results {
			if res.Status == models.TaskStatusFailed {
				utils.Warnf("  - %s: %s", res.Website, res.ErrorMessage)
			}
		}
	}
}
