package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
		{"缺少主机名", "https://", true},
		{"首尾空白", "  https://cdn.example.com/a.jpg ", false},
		{"协议大小写", "HTTPS://cdn.example.com/a.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPageReference(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"完整URL", "https://shop.example.com/item", "https://shop.example.com/item", nil},
		{"缺少协议默认https", "shop.example.com/item?id=1", "https://shop.example.com/item?id=1", nil},
		{"协议相对", "//shop.example.com/item", "https://shop.example.com/item", nil},
		{"首尾空白", "  http://shop.example.com  ", "http://shop.example.com", nil},
		{"空值", "", "", ErrMissingPageURL},
		{"仅空白", "   ", "", ErrMissingPageURL},
		{"不支持的协议", "ftp://shop.example.com", "", ErrInvalidPageURL},
		{"缺少主机名", "https:///item", "", ErrInvalidPageURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := NewPageReference(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewPageReference(%q) error = %v, 期望 %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPageReference(%q) 意外错误: %v", tt.raw, err)
			}
			if page.String() != tt.want {
				t.Errorf("NewPageReference(%q) = %s, 期望 %s", tt.raw, page.String(), tt.want)
			}
		})
	}
}

func TestImageSet_Dedup(t *testing.T) {
	set := NewImageSet()

	if !set.Add("https://cdn.example.com/a.jpg", SourceOpenGraph) {
		t.Fatal("首次插入应返回true")
	}
	if set.Add("https://cdn.example.com/a.jpg", SourceImgTag) {
		t.Error("重复URL不应再次插入")
	}
	if set.Add("", SourceImgTag) {
		t.Error("空URL不应插入")
	}
	set.Add("https://cdn.example.com/b.jpg", SourceImgTag)

	if set.Len() != 2 {
		t.Errorf("Len() = %d, 期望 2", set.Len())
	}

	candidates := set.Candidates()
	if candidates[0].Source != SourceOpenGraph {
		t.Errorf("首个候选来源 = %s, 期望保留最早的来源 og", candidates[0].Source)
	}

	counts := set.CountBySource()
	if counts[SourceOpenGraph] != 1 || counts[SourceImgTag] != 1 {
		t.Errorf("CountBySource() = %v", counts)
	}
}

func TestImageSet_Capped(t *testing.T) {
	set := NewImageSet()
	for i := 0; i < 45; i++ {
		set.Add(fmt.Sprintf("https://cdn.example.com/%d.jpg", i), SourceImgTag)
	}

	result := NewExtractResult(set, DefaultMaxImages)
	if len(result.Images) != DefaultMaxImages {
		t.Errorf("len(Images) = %d, 期望 %d", len(result.Images), DefaultMaxImages)
	}
	if result.TotalFound != 45 {
		t.Errorf("TotalFound = %d, 期望截断前的 45", result.TotalFound)
	}
	if result.Images[0] != "https://cdn.example.com/0.jpg" {
		t.Errorf("截断应保留插入顺序, 首项 = %s", result.Images[0])
	}

	if got := set.Capped(0); len(got) != 45 {
		t.Errorf("Capped(0) 应返回全部, 实际 %d", len(got))
	}
}

func TestNewExtractResult_Empty(t *testing.T) {
	result := NewExtractResult(nil, DefaultMaxImages)
	if result.Images == nil {
		t.Fatal("Images 不应为nil")
	}

	data, err := json.Marshal(NewExtractResult(NewImageSet(), DefaultMaxImages))
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	if string(data) != `{"images":[],"totalFound":0}` {
		t.Errorf("空集合序列化 = %s", data)
	}
}

func TestParseScrapeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ScrapeMode
		wantErr bool
	}{
		{"all", ModeAll, false},
		{"static", ModeStatic, false},
		{"dynamic", ModeDynamic, false},
		{"", ModeAll, false},
		{"mobile", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScrapeMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScrapeMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseScrapeMode(%q) = %s, 期望 %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestScrapeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ScrapeConfig
		wantErr bool
	}{
		{
			name:    "有效配置",
			config:  ScrapeConfig{Mode: ModeAll, EscalationThreshold: 3, MaxImages: 30, PageTimeout: 20 * time.Second},
			wantErr: false,
		},
		{
			name:    "无效模式",
			config:  ScrapeConfig{Mode: "turbo", EscalationThreshold: 3, MaxImages: 30},
			wantErr: true,
		},
		{
			name:    "图片上限为0",
			config:  ScrapeConfig{Mode: ModeAll, EscalationThreshold: 3, MaxImages: 0},
			wantErr: true,
		},
		{
			name:    "阈值为负",
			config:  ScrapeConfig{Mode: ModeAll, EscalationThreshold: -1, MaxImages: 30},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBrowserConfig_Validate(t *testing.T) {
	valid := BrowserConfig{
		NavTimeout:     30 * time.Second,
		SettleDelay:    2 * time.Second,
		ScrollDelay:    time.Second,
		ViewportWidth:  1366,
		ViewportHeight: 900,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("有效配置验证失败: %v", err)
	}

	invalid := valid
	invalid.NavTimeout = 0
	if err := invalid.Validate(); err == nil {
		t.Error("导航超时为0应验证失败")
	}

	invalid = valid
	invalid.ViewportWidth = 100
	if err := invalid.Validate(); err == nil {
		t.Error("视口过小应验证失败")
	}
}

func TestBatchCheckpoint_SaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, CheckpointFilename("/data/urls.txt"))

	if filepath.Base(path) != "checkpoint_urls.json" {
		t.Errorf("检查点文件名 = %s", filepath.Base(path))
	}

	cp := NewBatchCheckpoint("/data/urls.txt")
	cp.MarkDone("https://shop.example.com/a")
	cp.MarkDone("https://shop.example.com/a")
	cp.MarkFailed("https://shop.example.com/b")

	if err := cp.SaveToFile(path); err != nil {
		t.Fatalf("保存检查点失败: %v", err)
	}

	loaded, err := LoadCheckpointFromFile(path)
	if err != nil {
		t.Fatalf("加载检查点失败: %v", err)
	}

	if loaded.BatchID != cp.BatchID {
		t.Errorf("BatchID = %s, 期望 %s", loaded.BatchID, cp.BatchID)
	}
	if len(loaded.Completed) != 1 {
		t.Errorf("Completed 数量 = %d, 期望 1", len(loaded.Completed))
	}
	if !loaded.IsDone("https://shop.example.com/a") {
		t.Error("已完成URL应被识别")
	}
	if loaded.IsDone("https://shop.example.com/b") {
		t.Error("失败URL不应视为已完成")
	}
}

func TestFetchedImage_Bytes(t *testing.T) {
	body := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	img := NewFetchedImage("https://cdn.example.com/a.png", "image/png", body)

	if img.ByteSize != int64(len(body)) {
		t.Errorf("ByteSize = %d, 期望 %d", img.ByteSize, len(body))
	}
	if img.Payload != "data:image/png;base64,iVBORw0K" {
		t.Errorf("Payload = %s", img.Payload)
	}
	if img.Extension() != ".png" {
		t.Errorf("Extension() = %s", img.Extension())
	}

	decoded, err := img.Bytes()
	if err != nil {
		t.Fatalf("Bytes() 错误: %v", err)
	}
	if string(decoded) != string(body) {
		t.Error("解码结果与原始字节不一致")
	}

	if err := img.ValidateSize(4); err == nil {
		t.Error("超过上限应验证失败")
	}
}

func TestOverrideProvider(t *testing.T) {
	base := StaticHeaders(http.Header{
		"User-Agent": []string{"Desktop/1.0"},
		"Accept":     []string{"*/*"},
	})
	provider := &OverrideProvider{
		Base:      base,
		Overrides: http.Header{"User-Agent": []string{"Mobile/1.0"}},
	}

	headers, err := provider.GetHeaders()
	if err != nil {
		t.Fatalf("GetHeaders() 错误: %v", err)
	}
	if headers.Get("User-Agent") != "Mobile/1.0" {
		t.Errorf("User-Agent = %s, 期望 Mobile/1.0", headers.Get("User-Agent"))
	}
	if headers.Get("Accept") != "*/*" {
		t.Errorf("Accept 应保留底层值, 实际 %s", headers.Get("Accept"))
	}

	original, _ := base.GetHeaders()
	if original.Get("User-Agent") != "Desktop/1.0" {
		t.Error("覆盖不应修改底层头部")
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	headers, err := CliHeaders{
		"User-Agent: Bot/1.0",
		"user-agent: Bot/2.0",
		"Cookie: a=1",
		"Cookie: b=2",
		"X-Empty:",
	}.Parse()
	if err != nil {
		t.Fatalf("Parse() 错误: %v", err)
	}
	if headers.Get("User-Agent") != "Bot/2.0" {
		t.Errorf("User-Agent = %s, 期望后者覆盖", headers.Get("User-Agent"))
	}
	if headers.Get("Cookie") != "a=1; b=2" {
		t.Errorf("Cookie = %s, 期望拼接", headers.Get("Cookie"))
	}
	if _, ok := headers["X-Empty"]; !ok {
		t.Error("空值头部应保留")
	}

	for _, bad := range []string{"NoColon", ": value"} {
		if _, err := (CliHeaders{bad}).Parse(); err == nil {
			t.Errorf("Parse(%q) 应返回错误", bad)
		}
	}
}
