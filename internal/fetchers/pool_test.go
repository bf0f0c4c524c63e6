package fetchers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod"
)

func fixedSample(s ResourceSample, err error) func() (ResourceSample, error) {
	return func() (ResourceSample, error) { return s, err }
}

func TestCalculateMaxTabs(t *testing.T) {
	const mb = 1024 * 1024
	tests := []struct {
		name   string
		sample func() (ResourceSample, error)
		limit  int
		want   int
	}{
		{"内存充足受上限约束", fixedSample(ResourceSample{AvailableMemory: 100 * 1024 * mb}, nil), 1, 1},
		{"内存不足至少为1", fixedSample(ResourceSample{AvailableMemory: 512 * mb}, nil), 8, 1},
		{"按内存计算", fixedSample(ResourceSample{AvailableMemory: 1024*mb + 200*mb}, nil), 32, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultResourceMonitorConfig()
			cfg.MaxTabsLimit = tt.limit
			rm := NewResourceMonitor(cfg)
			rm.sample = tt.sample
			got := rm.CalculateMaxTabs()
			if got < 1 || got > tt.limit {
				t.Fatalf("CalculateMaxTabs() = %d, 超出 [1, %d]", got, tt.limit)
			}
			if tt.want <= 2 && got > tt.want {
				t.Errorf("CalculateMaxTabs() = %d, 期望不超过 %d", got, tt.want)
			}
		})
	}

	t.Run("采样失败", func(t *testing.T) {
		rm := NewResourceMonitor(DefaultResourceMonitorConfig())
		rm.sample = fixedSample(ResourceSample{}, errors.New("boom"))
		if got := rm.CalculateMaxTabs(); got < 1 {
			t.Errorf("CalculateMaxTabs() = %d", got)
		}
	})

	t.Run("结果被缓存", func(t *testing.T) {
		var calls atomic.Int32
		rm := NewResourceMonitor(DefaultResourceMonitorConfig())
		rm.sample = func() (ResourceSample, error) {
			calls.Add(1)
			return ResourceSample{AvailableMemory: 8 * 1024 * mb}, nil
		}
		rm.CalculateMaxTabs()
		rm.CalculateMaxTabs()
		if calls.Load() != 1 {
			t.Errorf("采样次数 = %d, 期望 1", calls.Load())
		}
	})
}

func TestCheckResourceAvailability(t *testing.T) {
	const mb = 1024 * 1024
	tests := []struct {
		name   string
		sample ResourceSample
		want   bool
	}{
		{"正常", ResourceSample{AvailableMemory: 4096 * mb, CPUPercent: 10}, true},
		{"内存不足", ResourceSample{AvailableMemory: 100 * mb, CPUPercent: 10}, false},
		{"CPU过高", ResourceSample{AvailableMemory: 4096 * mb, CPUPercent: 99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResourceMonitor(DefaultResourceMonitorConfig())
			rm.sample = fixedSample(tt.sample, nil)
			ok, reason := rm.CheckResourceAvailability()
			if ok != tt.want {
				t.Errorf("ok = %v (%s), 期望 %v", ok, reason, tt.want)
			}
			if !ok && reason == "" {
				t.Error("不可用时应返回原因")
			}
		})
	}
}

type fakeTabs struct {
	created   atomic.Int32
	destroyed atomic.Int32
	resetErr  error
}

func newFakePool(tabs *fakeTabs, maxSize int) *PagePool {
	pp := newPagePool(nil, maxSize)
	pp.create = func() (*rod.Page, error) {
		tabs.created.Add(1)
		return &rod.Page{}, nil
	}
	pp.reset = func(*rod.Page) error { return tabs.resetErr }
	pp.destroy = func(*rod.Page) { tabs.destroyed.Add(1) }
	return pp
}

func TestPagePoolReuse(t *testing.T) {
	tabs := &fakeTabs{}
	pp := newFakePool(tabs, 2)
	ctx := context.Background()

	p1, err := pp.AcquirePage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pp.ReleasePage(p1)
	p2, err := pp.AcquirePage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("归还的标签页应被复用")
	}
	if tabs.created.Load() != 1 {
		t.Errorf("创建次数 = %d, 期望 1", tabs.created.Load())
	}
}

func TestPagePoolBlocksAtMax(t *testing.T) {
	tabs := &fakeTabs{}
	pp := newFakePool(tabs, 1)
	ctx := context.Background()

	p1, _ := pp.AcquirePage(ctx)

	got := make(chan *rod.Page, 1)
	go func() {
		p, err := pp.AcquirePage(ctx)
		if err == nil {
			got <- p
		}
	}()

	select {
	case <-got:
		t.Fatal("达到上限时应阻塞")
	case <-time.After(50 * time.Millisecond):
	}

	pp.ReleasePage(p1)
	select {
	case p := <-got:
		if p != p1 {
			t.Error("应获得归还的标签页")
		}
	case <-time.After(time.Second):
		t.Fatal("归还后应被唤醒")
	}
	if pp.CurrentSize() != 1 {
		t.Errorf("CurrentSize() = %d", pp.CurrentSize())
	}
}

func TestPagePoolAcquireCancelled(t *testing.T) {
	tabs := &fakeTabs{}
	pp := newFakePool(tabs, 1)
	pp.AcquirePage(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pp.AcquirePage(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestPagePoolResetFailureFreesSlot(t *testing.T) {
	tabs := &fakeTabs{resetErr: errors.New("crashed")}
	pp := newFakePool(tabs, 1)
	p, _ := pp.AcquirePage(context.Background())
	pp.ReleasePage(p)
	if tabs.destroyed.Load() != 1 || pp.CurrentSize() != 0 {
		t.Errorf("destroyed = %d, size = %d", tabs.destroyed.Load(), pp.CurrentSize())
	}
	if _, err := pp.AcquirePage(context.Background()); err != nil {
		t.Errorf("应可重新创建: %v", err)
	}
}

func TestPagePoolClose(t *testing.T) {
	tabs := &fakeTabs{}
	pp := newFakePool(tabs, 2)
	ctx := context.Background()
	p1, _ := pp.AcquirePage(ctx)
	p2, _ := pp.AcquirePage(ctx)
	pp.ReleasePage(p1)

	waiting := make(chan error, 1)
	pp2 := newFakePool(&fakeTabs{}, 1)
	pp2.AcquirePage(ctx)
	go func() {
		_, err := pp2.AcquirePage(ctx)
		waiting <- err
	}()
	time.Sleep(20 * time.Millisecond)
	pp2.Close()
	if err := <-waiting; !errors.Is(err, ErrPoolClosed) {
		t.Errorf("err = %v", err)
	}

	pp.Close()
	if tabs.destroyed.Load() != 1 {
		t.Errorf("Close 应销毁空闲标签页, destroyed = %d", tabs.destroyed.Load())
	}
	pp.ReleasePage(p2)
	if tabs.destroyed.Load() != 2 {
		t.Errorf("关闭后归还应直接销毁, destroyed = %d", tabs.destroyed.Load())
	}
	pp.Close()
}
