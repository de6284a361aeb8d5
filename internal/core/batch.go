package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"golang.org/x/sync/errgroup"
)

// PageScraper 单页提取,Scraper实现了该接口
type PageScraper interface {
	Scrape(ctx context.Context, rawPageURL string) (*models.ExtractResult, *models.ScrapeStats, error)
}

// BatchRunner 批量提取器
type BatchRunner struct {
	scraper   PageScraper
	config    BatchConfig
	scrapeCfg models.ScrapeConfig
	monitor   *crawlers.ResourceMonitor

	// 进度条输出,nil时为stderr
	Progress io.Writer
}

// NewBatchRunner 创建批量提取器
func NewBatchRunner(scraper PageScraper, config BatchConfig, scrapeCfg models.ScrapeConfig, monitor *crawlers.ResourceMonitor) *BatchRunner {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.OutputDir == "" {
		config.OutputDir = "output"
	}
	return &BatchRunner{
		scraper:   scraper,
		config:    config,
		scrapeCfg: scrapeCfg,
		monitor:   monitor,
	}
}

// CheckpointPath 检查点文件路径
func (br *BatchRunner) CheckpointPath(sourceFile string) string {
	return filepath.Join(br.config.OutputDir, models.CheckpointFilename(sourceFile))
}

// Run 并发提取URL列表
// resume为true时跳过检查点中已完成的页面;返回的报告只包含本次处理的页面
func (br *BatchRunner) Run(ctx context.Context, sourceFile string, urls []string, resume bool) (*models.BatchReport, error) {
	if err := os.MkdirAll(br.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	checkpoint := br.loadCheckpoint(sourceFile, resume)
	checkpointPath := br.CheckpointPath(sourceFile)

	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if !checkpoint.IsDone(u) {
			pending = append(pending, u)
		}
	}

	report := &models.BatchReport{
		BatchID:      checkpoint.BatchID,
		SourceFile:   sourceFile,
		StartTime:    time.Now(),
		TotalURLs:    len(urls),
		SkippedCount: len(urls) - len(pending),
		Results:      make([]models.BatchEntry, len(pending)),
		Config:       br.scrapeCfg,
	}

	concurrency := br.concurrency()
	utils.Infof("🚀 开始批量提取: %d个URL (跳过%d, 并发%d)", len(pending), report.SkippedCount, concurrency)

	bar := utils.NewProgressBar(len(pending), "提取中", br.Progress)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, pageURL := range pending {
		if i > 0 && br.config.Delay > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(br.config.Delay):
			}
		}
		if gctx.Err() != nil {
			break
		}

		i, pageURL := i, pageURL
		g.Go(func() error {
			// 等待并发槽期间可能已被取消
			if gctx.Err() != nil {
				return nil
			}
			entry := br.scrapeOne(gctx, pageURL)

			mu.Lock()
			defer mu.Unlock()

			report.Results[i] = entry
			if entry.Error == "" {
				checkpoint.MarkDone(pageURL)
			} else {
				checkpoint.MarkFailed(pageURL)
			}
			if err := checkpoint.SaveToFile(checkpointPath); err != nil {
				utils.Warnf("保存检查点失败: %v", err)
			}
			_ = bar.Add(1)

			if entry.Error != "" && !br.config.ContinueOnError {
				return fmt.Errorf("提取失败 [%s]: %s", pageURL, entry.Error)
			}
			return nil
		})
	}

	runErr := g.Wait()
	_ = bar.Finish()

	br.summarize(report, pending)
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return report, runErr
}

// scrapeOne 提取单个页面,错误转为报告条目
func (br *BatchRunner) scrapeOne(ctx context.Context, pageURL string) models.BatchEntry {
	entry := models.BatchEntry{PageURL: pageURL, Images: []string{}}

	result, stats, err := br.scraper.Scrape(ctx, pageURL)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	if ctx.Err() != nil {
		// 上下文结束时结果可能不完整,下次恢复时重试
		entry.Error = ctx.Err().Error()
	}

	entry.Images = result.Images
	entry.TotalFound = result.TotalFound
	entry.Stats = stats
	return entry
}

// summarize 汇总统计,未开始的页面不计入结果
func (br *BatchRunner) summarize(report *models.BatchReport, pending []string) {
	results := report.Results[:0]
	for i, entry := range report.Results {
		if entry.PageURL == "" {
			utils.Debugf("未处理: %s", pending[i])
			continue
		}
		results = append(results, entry)

		if entry.Error != "" {
			report.FailCount++
			continue
		}
		report.SuccessCount++
		report.TotalImages += len(entry.Images)
		if entry.Stats != nil && entry.Stats.Escalated {
			report.Escalations++
		}
	}
	report.Results = results
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).Seconds()
}

// concurrency 配置的并发数,受可用内存限制
func (br *BatchRunner) concurrency() int {
	limit := br.config.Concurrency
	if br.monitor != nil && br.scrapeCfg.Mode != models.ModeStatic {
		if byMemory := br.monitor.MaxBrowsers(); byMemory < limit {
			utils.Warnf("可用内存只够同时运行%d个浏览器,并发数从%d降为%d", byMemory, limit, byMemory)
			limit = byMemory
		}
	}
	return limit
}

func (br *BatchRunner) loadCheckpoint(sourceFile string, resume bool) *models.BatchCheckpoint {
	path := br.CheckpointPath(sourceFile)
	if resume {
		cp, err := models.LoadCheckpointFromFile(path)
		if err == nil {
			utils.Infof("从检查点恢复: 已完成%d个页面", len(cp.Completed))
			return cp
		}
		if !os.IsNotExist(err) {
			utils.Warnf("读取检查点失败,重新开始: %v", err)
		}
	}
	return models.NewBatchCheckpoint(sourceFile)
}
