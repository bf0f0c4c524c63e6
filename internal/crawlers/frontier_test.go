package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestFrontier_SubmitDedup(t *testing.T) {
	f := NewFrontier()

	urls := []string{"https://a.com", "https://a.com/1", "https://a.com", "https://a.com/2", "https://a.com/1"}
	var accepted []string
	for _, u := range urls {
		if f.Submit(u, 0, 0) {
			accepted = append(accepted, u)
		}
	}

	if len(accepted) != 3 {
		t.Fatalf("接受数 = %d, want 3", len(accepted))
	}
	if f.Submitted() != 3 {
		t.Errorf("Submitted() = %d, want 3", f.Submitted())
	}

	ctx := context.Background()
	for i, want := range accepted {
		job, err := f.Take(ctx)
		if err != nil {
			t.Fatalf("Take() error = %v", err)
		}
		if job.ID != i+1 {
			t.Errorf("第%d个任务ID = %d, want %d", i, job.ID, i+1)
		}
		if job.URL != want {
			t.Errorf("第%d个任务URL = %s, want %s (FIFO)", i, job.URL, want)
		}
	}
}

func TestFrontier_JobFields(t *testing.T) {
	f := NewFrontier()
	f.Submit("https://a.com/x", 7, 3)

	job, err := f.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if job.ParentID != 7 || job.Depth != 3 {
		t.Errorf("job = %+v", job)
	}
	if !f.Seen("https://a.com/x") || f.Seen("https://a.com/y") {
		t.Error("Seen() 结果不正确")
	}
}

func TestFrontier_ConcurrentSubmit(t *testing.T) {
	f := NewFrontier()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.Submit(fmt.Sprintf("https://a.com/%d", i), 0, 1)
			}
		}()
	}
	wg.Wait()

	if f.Submitted() != 100 {
		t.Fatalf("Submitted() = %d, want 100", f.Submitted())
	}

	ids := make([]int, 0, 100)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		job, err := f.Take(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if seen[job.URL] {
			t.Fatalf("URL重复出队: %s", job.URL)
		}
		seen[job.URL] = true
		ids = append(ids, job.ID)
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("ID不连续: %v", ids)
		}
	}
}

func TestFrontier_TakeBlocksUntilSubmit(t *testing.T) {
	f := NewFrontier()
	got := make(chan string, 1)

	go func() {
		job, err := f.Take(context.Background())
		if err == nil {
			got <- job.URL
		}
	}()

	select {
	case <-got:
		t.Fatal("空队列上Take不应返回")
	case <-time.After(50 * time.Millisecond):
	}

	f.Submit("https://a.com", 0, 0)
	select {
	case u := <-got:
		if u != "https://a.com" {
			t.Errorf("Take() = %s", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit后Take未被唤醒")
	}
}

func TestFrontier_TakeCancelled(t *testing.T) {
	f := NewFrontier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Take(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Take() error = %v, want context.Canceled", err)
	}
}

func TestFrontier_Join(t *testing.T) {
	f := NewFrontier()

	if err := f.Join(context.Background()); err != nil {
		t.Fatalf("空队列Join() error = %v", err)
	}

	f.Submit("https://a.com/1", 0, 0)
	f.Submit("https://a.com/2", 0, 0)

	joined := make(chan struct{})
	go func() {
		_ = f.Join(context.Background())
		close(joined)
	}()

	for i := 0; i < 2; i++ {
		if _, err := f.Take(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	f.MarkDone()

	select {
	case <-joined:
		t.Fatal("仍有未完成任务时Join不应返回")
	case <-time.After(50 * time.Millisecond):
	}

	f.MarkDone()
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("所有任务完成后Join未返回")
	}
	if f.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", f.Outstanding())
	}
}

func TestFrontier_JoinCancelled(t *testing.T) {
	f := NewFrontier()
	f.Submit("https://a.com", 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.Join(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Join() error = %v, want DeadlineExceeded", err)
	}
}

func TestFrontier_MarkDoneTooManyPanics(t *testing.T) {
	f := NewFrontier()
	defer func() {
		if recover() == nil {
			t.Error("多余的MarkDone应panic")
		}
	}()
	f.MarkDone()
}
