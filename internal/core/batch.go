package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
)

// SiteCrawler 爬取单个站点, 由Crawler实现
type SiteCrawler interface {
	Crawl(ctx context.Context, startURL string) (*CrawlOutcome, error)
}

// BatchCrawler 批量爬取器
// 按顺序逐个爬取站点, 每个站点使用独立的爬取上下文
type BatchCrawler struct {
	crawler       SiteCrawler
	batchDelay    time.Duration
	continueOnErr bool
}

// BatchResult 单个站点的批量爬取结果
type BatchResult struct {
	URL         string
	Success     bool
	Error       error
	Outcome     *CrawlOutcome
	ProcessedAt time.Time
	Duration    float64
}

// BatchSummary 批量爬取摘要
type BatchSummary struct {
	Task    *models.BatchCrawlTask
	Results []BatchResult
}

// NewBatchCrawler 创建批量爬取器
func NewBatchCrawler(crawler SiteCrawler, batchDelay time.Duration, continueOnErr bool) *BatchCrawler {
	return &BatchCrawler{
		crawler:       crawler,
		batchDelay:    batchDelay,
		continueOnErr: continueOnErr,
	}
}

// CrawlBatch 批量爬取URL列表
// 单个站点失败时记录并继续; ctx取消时停止并返回取消错误
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, urlsFile string, urls []string) (*BatchSummary, error) {
	utils.Infof("🚀 开始批量爬取: %d个URL", len(urls))

	task := models.NewBatchCrawlTask(urlsFile, len(urls))
	now := time.Now()
	task.StartedAt = &now
	task.Status = models.TaskStatusRunning

	summary := &BatchSummary{
		Task:    task,
		Results: make([]BatchResult, 0, len(urls)),
	}

	var runErr error
	for i, targetURL := range urls {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(urls), targetURL)

		result := bc.crawlSingleURL(ctx, targetURL)
		summary.Results = append(summary.Results, result)

		if result.Success {
			task.SuccessfulURLs++
			task.TotalPages += result.Outcome.Task.Stats.PagesCrawled
			task.SubTasks = append(task.SubTasks, result.Outcome.Task.ID)
		} else {
			task.FailedURLs++
			utils.Errorf("❌ 爬取失败 [%s]: %v", targetURL, result.Error)
			if errors.Is(result.Error, context.Canceled) {
				runErr = result.Error
				break
			}
			if !bc.continueOnErr {
				utils.Warn("批量爬取中止")
				break
			}
		}

		if i < len(urls)-1 && bc.batchDelay > 0 {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			case <-time.After(bc.batchDelay):
			}
			if runErr != nil {
				break
			}
		}
	}

	done := time.Now()
	task.CompletedAt = &done
	switch {
	case runErr != nil:
		task.Status = models.TaskStatusCancelled
	case task.FailedURLs > 0 && task.SuccessfulURLs == 0:
		task.Status = models.TaskStatusFailed
	default:
		task.Status = models.TaskStatusCompleted
	}

	bc.printSummary(summary)

	if runErr != nil {
		return summary, fmt.Errorf("批量爬取中断: %w", runErr)
	}
	return summary, nil
}

// crawlSingleURL 爬取单个URL
func (bc *BatchCrawler) crawlSingleURL(ctx context.Context, targetURL string) BatchResult {
	result := BatchResult{URL: targetURL, ProcessedAt: time.Now()}
	outcome, err := bc.crawler.Crawl(ctx, targetURL)
	result.Duration = time.Since(result.ProcessedAt).Seconds()
	if err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	result.Outcome = outcome
	return result
}

// printSummary 打印批量爬取摘要
func (bc *BatchCrawler) printSummary(summary *BatchSummary) {
	task := summary.Task
	elapsed := 0.0
	if task.StartedAt != nil && task.CompletedAt != nil {
		elapsed = task.CompletedAt.Sub(*task.StartedAt).Seconds()
	}

	utils.Info("==================================================")
	utils.Info("📊 批量爬取摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", task.TotalURLs)
	utils.Infof("✅ 成功: %d", task.SuccessfulURLs)
	utils.Infof("❌ 失败: %d", task.FailedURLs)
	utils.Infof("📄 总页面数: %d", task.TotalPages)
	utils.Infof("⏱️  总耗时: %.2f秒", elapsed)
	utils.Info("==================================================")

	if task.FailedURLs > 0 {
		utils.Warn("失败的URL:")
		for _, result := range summary.Results {
			if !result.Success {
				utils.Warnf("  - %s: %v", result.URL, result.Error)
			}
		}
	}
}
