package crawlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

type fakeSession struct {
	snap      *renderedSnapshot
	err       error
	panicWith interface{}
	closed    int
}

func (s *fakeSession) Render(ctx context.Context, pageURL string) (*renderedSnapshot, error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.snap, s.err
}

func (s *fakeSession) Close() {
	s.closed++
}

func testBrowserConfig() models.BrowserConfig {
	return models.BrowserConfig{
		Enabled:        true,
		Headless:       true,
		NavTimeout:     30 * time.Second,
		ViewportWidth:  1366,
		ViewportHeight: 900,
		MinVisibleArea: DefaultMinVisibleArea,
	}
}

func newTestDynamic(config models.BrowserConfig, session *fakeSession, launchErr error) (*DynamicExtractor, *int) {
	launches := 0
	de := NewDynamicExtractor(config, nil, nil)
	de.launch = func(ctx context.Context) (renderSession, error) {
		launches++
		if launchErr != nil {
			return nil, launchErr
		}
		return session, nil
	}
	return de, &launches
}

func TestDynamicExtractor_Success(t *testing.T) {
	session := &fakeSession{snap: &renderedSnapshot{
		OG: "https://cdn.example.com/og.jpg",
		Images: []renderedImage{
			{Src: "https://cdn.example.com/tiny.jpg", Area: 100},
			{Src: "https://cdn.example.com/mid.jpg", Area: 90000},
			{Src: "https://cdn.example.com/big.jpg", Srcset: "/big-1x.jpg 1x, /big-2x.jpg 2x", Area: 250000},
			{Src: "https://cdn.example.com/logo-header.png", Area: 400000},
		},
	}}
	de, launches := newTestDynamic(testBrowserConfig(), session, nil)

	page, _ := models.NewPageReference("https://shop.example.com/item")
	set := models.NewImageSet()

	result, err := de.Extract(context.Background(), page, set)
	if err != nil {
		t.Fatalf("Extract() 错误: %v", err)
	}

	want := []string{
		"https://cdn.example.com/og.jpg",
		"https://cdn.example.com/big.jpg",
		"https://shop.example.com/big-2x.jpg",
		"https://cdn.example.com/mid.jpg",
	}
	got := set.Capped(0)
	if len(got) != len(want) {
		t.Fatalf("候选 = %v, 期望 %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第%d个候选 = %s, 期望 %s", i, got[i], want[i])
		}
	}
	if result.Added != 4 {
		t.Errorf("Added = %d, 期望 4", result.Added)
	}
	if *launches != 1 || session.closed != 1 {
		t.Errorf("启动 %d 次, 关闭 %d 次, 期望各1次", *launches, session.closed)
	}
}

func TestDynamicExtractor_Disabled(t *testing.T) {
	config := testBrowserConfig()
	config.Enabled = false
	de, launches := newTestDynamic(config, &fakeSession{}, nil)

	page, _ := models.NewPageReference("https://shop.example.com/item")
	result, err := de.Extract(context.Background(), page, models.NewImageSet())
	if err != nil || result.Added != 0 {
		t.Errorf("禁用时应返回空结果, result = %+v, err = %v", result, err)
	}
	if *launches != 0 {
		t.Error("禁用时不应启动浏览器")
	}
}

func TestDynamicExtractor_LaunchFailure(t *testing.T) {
	de, _ := newTestDynamic(testBrowserConfig(), nil, errors.New("chromium not found"))

	page, _ := models.NewPageReference("https://shop.example.com/item")
	set := models.NewImageSet()

	_, err := de.Extract(context.Background(), page, set)
	if !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("error = %v, 期望 ErrBrowserUnavailable", err)
	}
	if set.Len() != 0 {
		t.Error("启动失败时不应产生候选")
	}
}

func TestDynamicExtractor_ClosesOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		session *fakeSession
		wantErr error
	}{
		{"渲染错误", &fakeSession{err: context.DeadlineExceeded}, context.DeadlineExceeded},
		{"渲染panic", &fakeSession{panicWith: "target closed"}, ErrBrowserCrashed},
		{"空快照", &fakeSession{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de, _ := newTestDynamic(testBrowserConfig(), tt.session, nil)
			page, _ := models.NewPageReference("https://shop.example.com/item")

			_, err := de.Extract(context.Background(), page, models.NewImageSet())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("意外错误: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, 期望 %v", err, tt.wantErr)
			}
			if tt.session.closed != 1 {
				t.Errorf("会话关闭次数 = %d, 期望 1", tt.session.closed)
			}
		})
	}
}

func TestDynamicExtractor_SessionLimit(t *testing.T) {
	config := testBrowserConfig()
	config.MaxSessions = 1
	de, launches := newTestDynamic(config, &fakeSession{}, nil)

	// 占满唯一的会话槽
	if err := de.sessions.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("占用会话失败: %v", err)
	}
	defer de.sessions.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	page, _ := models.NewPageReference("https://shop.example.com/item")
	if _, err := de.Extract(ctx, page, models.NewImageSet()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, 期望等待超时", err)
	}
	if *launches != 0 {
		t.Error("未获得会话槽时不应启动浏览器")
	}
}

func TestDynamicExtractor_ResourceLimited(t *testing.T) {
	monitor := newFakeMonitor(100*mb, 0)
	de, launches := newTestDynamic(testBrowserConfig(), &fakeSession{}, nil)
	de.monitor = monitor

	page, _ := models.NewPageReference("https://shop.example.com/item")
	if _, err := de.Extract(context.Background(), page, models.NewImageSet()); !errors.Is(err, ErrResourceLimited) {
		t.Errorf("error = %v, 期望 ErrResourceLimited", err)
	}
	if *launches != 0 {
		t.Error("资源不足时不应启动浏览器")
	}
}

func TestRankRendered(t *testing.T) {
	snap := &renderedSnapshot{
		Images: []renderedImage{
			{Src: "a.jpg", Area: 5000},
			{Src: "b.jpg", Area: 5000},
			{Src: "c.jpg", Area: 2499},
			{Src: "", Srcset: "d-1.jpg 1x, d-2.jpg 2x", Area: 10000},
		},
	}

	got := rankRendered(snap, 0)
	want := []rankedCandidate{
		{"d-2.jpg", models.SourceRenderedSrcset},
		{"a.jpg", models.SourceRenderedImg},
		{"b.jpg", models.SourceRenderedImg},
	}
	if len(got) != len(want) {
		t.Fatalf("rankRendered() = %v, 期望 %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("第%d项 = %v, 期望 %v", i, got[i], want[i])
		}
	}

	if rankRendered(nil, 0) != nil {
		t.Error("nil快照应返回nil")
	}
}
