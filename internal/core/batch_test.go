package core

import (
	"context"
	"errors"
	"testing"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
)

type fakeSiteCrawler struct {
	fail   map[string]error
	called []string
}

func (f *fakeSiteCrawler) Crawl(_ context.Context, startURL string) (*CrawlOutcome, error) {
	f.called = append(f.called, startURL)
	if err := f.fail[startURL]; err != nil {
		return nil, err
	}
	task := &models.CrawlTask{ID: "task-" + startURL}
	task.Stats.PagesCrawled = 2
	return &CrawlOutcome{Task: task}, nil
}

func TestBatchCrawler(t *testing.T) {
	urls := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}

	t.Run("失败后继续", func(t *testing.T) {
		fake := &fakeSiteCrawler{fail: map[string]error{urls[1]: errors.New("boom")}}
		summary, err := NewBatchCrawler(fake, 0, true).CrawlBatch(context.Background(), "urls.txt", urls)
		if err != nil {
			t.Fatal(err)
		}
		if len(fake.called) != 3 {
			t.Errorf("爬取次数 = %d, 期望 3", len(fake.called))
		}
		task := summary.Task
		if task.SuccessfulURLs != 2 || task.FailedURLs != 1 || task.TotalPages != 4 {
			t.Errorf("Task = %+v", task)
		}
		if task.Status != models.TaskStatusCompleted || len(task.SubTasks) != 2 {
			t.Errorf("Status = %s, SubTasks = %v", task.Status, task.SubTasks)
		}
	})

	t.Run("失败后停止", func(t *testing.T) {
		fake := &fakeSiteCrawler{fail: map[string]error{urls[0]: errors.New("boom")}}
		summary, err := NewBatchCrawler(fake, 0, false).CrawlBatch(context.Background(), "urls.txt", urls)
		if err != nil {
			t.Fatal(err)
		}
		if len(fake.called) != 1 || summary.Task.Status != models.TaskStatusFailed {
			t.Errorf("called = %v, Status = %s", fake.called, summary.Task.Status)
		}
	})

	t.Run("取消", func(t *testing.T) {
		fake := &fakeSiteCrawler{fail: map[string]error{urls[0]: context.Canceled}}
		summary, err := NewBatchCrawler(fake, 0, true).CrawlBatch(context.Background(), "urls.txt", urls)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
		if len(fake.called) != 1 || summary.Task.Status != models.TaskStatusCancelled {
			t.Errorf("called = %v, Status = %s", fake.called, summary.Task.Status)
		}
	})
}
