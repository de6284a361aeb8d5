package crawlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/andybalholm/brotli"
)

const productPage = `<!DOCTYPE html>
<html><head>
<meta content="//cdn.example.com/p.jpg?w=200" property="og:image">
<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","image":["https://cdn.example.com/a1.jpg","https://cdn.example.com/a2.jpg"]}</script>
<script type="application/ld+json">{ broken json </script>
</head><body>
<img src="/static/logo.png">
<img data-src="/media/lazy.webp" src="data:image/gif;base64,R0lGOD">
<img src="/images/main_800x800.jpg">
<picture><source srcset="/img/s-400.jpg 400w, /img/s-1200.jpg 1200w"></picture>
<script>window.__DATA__ = {"hero":"https:\/\/cdn.example.com\/product\/hero.png?v=2","bg":"https://cdn.example.com/theme/bg.png"};</script>
</body></html>`

func testFetchConfig() models.FetchConfig {
	return models.FetchConfig{Timeout: 5 * time.Second, MaxBytes: models.MaxImageSize}
}

func TestScanHTML_SignalOrder(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/item")
	set := models.NewImageSet()

	stats := scanHTML([]byte(productPage), base, set)

	want := []struct {
		url    string
		source models.Source
	}{
		{"https://cdn.example.com/p.jpg", models.SourceOpenGraph},
		{"https://cdn.example.com/tw.jpg", models.SourceTwitter},
		{"https://cdn.example.com/a1.jpg", models.SourceJSONLD},
		{"https://cdn.example.com/a2.jpg", models.SourceJSONLD},
		{"https://shop.example.com/media/lazy.webp", models.SourceLazyAttr},
		{"https://shop.example.com/images/main.jpg", models.SourceImgTag},
		{"https://shop.example.com/img/s-1200.jpg", models.SourceSrcset},
		{"https://cdn.example.com/product/hero.png", models.SourceInlineScript},
	}

	got := set.Candidates()
	if len(got) != len(want) {
		for _, c := range got {
			t.Logf("候选: %s (%s)", c.URL, c.Source)
		}
		t.Fatalf("候选数量 = %d, 期望 %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].URL != w.url || got[i].Source != w.source {
			t.Errorf("第%d个候选 = %s (%s), 期望 %s (%s)", i, got[i].URL, got[i].Source, w.url, w.source)
		}
	}

	if stats.Filtered < 2 {
		t.Errorf("logo和短data URI应被过滤, Filtered = %d", stats.Filtered)
	}
}

// og:image的属性顺序不影响匹配,查询参数被去掉
func TestScanHTML_OpenGraphAttributeOrder(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/item")

	for _, tag := range []string{
		`<meta property="og:image" content="//cdn.example.com/p.jpg?w=200">`,
		`<meta content="//cdn.example.com/p.jpg?w=200" property="og:image">`,
	} {
		set := models.NewImageSet()
		scanHTML([]byte("<html><head>"+tag+"</head><body></body></html>"), base, set)

		if !set.Contains("https://cdn.example.com/p.jpg") {
			t.Errorf("%s: 期望得到 https://cdn.example.com/p.jpg, 实际 %v", tag, set.Capped(0))
		}
	}
}

func TestScanHTML_JSONLDArrayOrder(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/item")
	html := `<html><head><script type="application/ld+json">
	{"@type":"Product","name":"Shirt","image":["https://cdn.example.com/first.jpg","https://cdn.example.com/second.jpg"]}
	</script></head><body></body></html>`

	set := models.NewImageSet()
	scanHTML([]byte(html), base, set)

	got := set.Capped(0)
	if len(got) != 2 || got[0] != "https://cdn.example.com/first.jpg" || got[1] != "https://cdn.example.com/second.jpg" {
		t.Errorf("JSON-LD图片 = %v, 期望按文档顺序的两项", got)
	}
}

func TestScanHTML_LazyRequiresExtension(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/item")
	html := `<html><body>
	<div data-src="/api/widget"></div>
	<div data-zoom-image="/zoom/big.JPG"></div>
	<img src="/pixel">
	</body></html>`

	set := models.NewImageSet()
	scanHTML([]byte(html), base, set)

	got := set.Capped(0)
	if len(got) != 1 || got[0] != "https://shop.example.com/zoom/big.JPG" {
		t.Errorf("懒加载候选 = %v", got)
	}
}

func TestScanHTML_ScriptNeedsProductToken(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/item")
	html := `<html><body><script>
	var a = "https://cdn.example.com/catalog/coat.webp";
	var b = "https://cdn.example.com/theme/bg.jpg";
	</script></body></html>`

	set := models.NewImageSet()
	scanHTML([]byte(html), base, set)

	got := set.Capped(0)
	if len(got) != 1 || got[0] != "https://cdn.example.com/catalog/coat.webp" {
		t.Errorf("脚本候选 = %v", got)
	}
}

func TestStaticExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("自定义头部未生效")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	headers := models.StaticHeaders(http.Header{"X-Test": []string{"yes"}})
	se := NewStaticExtractor(testFetchConfig(), headers)
	page, _ := models.NewPageReference(server.URL + "/item")
	set := models.NewImageSet()

	result, err := se.Extract(context.Background(), page, set)
	if err != nil {
		t.Fatalf("Extract() 错误: %v", err)
	}
	if result.Added != 8 || set.Len() != 8 {
		t.Errorf("Added = %d, Len = %d, 期望 8", result.Added, set.Len())
	}
	if !set.Contains(server.URL + "/images/main.jpg") {
		t.Errorf("相对路径应基于页面源解析: %v", set.Capped(0))
	}
	if !result.ClientRendered {
		t.Error("可见文本很少的页面应给出客户端渲染提示")
	}
}

func TestStaticExtractor_Brotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte(productPage))
	bw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	se := NewStaticExtractor(testFetchConfig(), nil)
	page, _ := models.NewPageReference(server.URL)
	set := models.NewImageSet()

	if _, err := se.Extract(context.Background(), page, set); err != nil {
		t.Fatalf("Extract() 错误: %v", err)
	}
	if !set.Contains("https://cdn.example.com/p.jpg") {
		t.Errorf("brotli响应未正确解压: %v", set.Capped(0))
	}
}

func TestStaticExtractor_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer notFound.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"非2xx状态", notFound.URL, ErrPageStatus},
		{"无法连接", closedURL, ErrPageFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := NewStaticExtractor(testFetchConfig(), nil)
			page, _ := models.NewPageReference(tt.url)
			set := models.NewImageSet()

			_, err := se.Extract(context.Background(), page, set)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract() error = %v, 期望 %v", err, tt.wantErr)
			}
			if set.Len() != 0 {
				t.Errorf("失败时不应产生候选, Len = %d", set.Len())
			}
		})
	}
}

func TestNewMobileStaticExtractor(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	base := models.StaticHeaders(http.Header{"User-Agent": []string{DesktopUserAgent}})
	se := NewMobileStaticExtractor(testFetchConfig(), base)
	page, _ := models.NewPageReference(server.URL)

	if _, err := se.Extract(context.Background(), page, models.NewImageSet()); err != nil {
		t.Fatalf("Extract() 错误: %v", err)
	}
	if se.Name() != "static-mobile" {
		t.Errorf("Name() = %s", se.Name())
	}
	if gotUA != MobileUserAgent {
		t.Errorf("User-Agent = %s, 期望移动端UA", gotUA)
	}
}

func TestDecompressResponse(t *testing.T) {
	plain := []byte(strings.Repeat("<p>hello</p>", 20))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(plain)
	zw.Close()

	// 先gzip再br,对应 "gzip, br"
	var stacked bytes.Buffer
	bw := brotli.NewWriter(&stacked)
	bw.Write(gz.Bytes())
	bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip", "gzip", gz.Bytes()},
		{"已解压的gzip", "gzip", plain},
		{"无编码", "", plain},
		{"未知编码", "zstd", plain},
		{"叠加编码", "gzip, br", stacked.Bytes()},
		{"identity", "identity", plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decompressResponse(tt.encoding, tt.body)
			if err != nil {
				t.Fatalf("decompressResponse() 错误: %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("解压结果不一致")
			}
		})
	}

	corrupt := []byte{0x1f, 0x8b, 0x00, 0x01}
	if got := decodeBody("gzip", corrupt, "test"); !bytes.Equal(got, corrupt) {
		t.Error("解压失败时应退回原始内容")
	}
}
