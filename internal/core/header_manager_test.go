package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeadersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "headers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestHeaderManager_Defaults(t *testing.T) {
	hm, err := NewHeaderManager(writeHeadersFile(t, "headers:\n"), nil)
	require.NoError(t, err)

	headers, err := hm.GetHeaders()
	require.NoError(t, err)

	assert.Equal(t, crawlers.DesktopUserAgent, headers.Get("User-Agent"))
	assert.Equal(t, DefaultAccept, headers.Get("Accept"))
	assert.NotEmpty(t, headers.Get("Accept-Language"))
	assert.Equal(t, "gzip, deflate, br", headers.Get("Accept-Encoding"))
}

func TestHeaderManager_MergePriority(t *testing.T) {
	path := writeHeadersFile(t, `headers:
  user-agent: "ConfigBot/1.0"
  accept-language: "zh-CN"
  cookie: "region=cn"
`)
	hm, err := NewHeaderManager(path, []string{"User-Agent: CliBot/2.0"})
	require.NoError(t, err)

	headers, err := hm.GetHeaders()
	require.NoError(t, err)

	tests := []struct {
		name string
		want string
	}{
		{"User-Agent", "CliBot/2.0"},
		{"Accept-Language", "zh-CN"},
		{"Cookie", "region=cn"},
		{"Accept", DefaultAccept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headers.Get(tt.name))
		})
	}
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager(writeHeadersFile(t, "headers:\n"), []string{
		"Authorization: Bearer secret-token-12345",
		"Cookie: session=abc123",
	})
	require.NoError(t, err)

	safe := hm.GetSafeHeaders()
	assert.Equal(t, "Bearer ***", safe["Authorization"])
	assert.Equal(t, "session=***", safe["Cookie"])
	assert.Equal(t, crawlers.DesktopUserAgent, safe["User-Agent"])
}

func TestHeaderManager_Errors(t *testing.T) {
	_, err := NewHeaderManager("", []string{"InvalidFormat"})
	assert.Error(t, err, "缺少冒号应返回错误")

	hm, err := NewHeaderManager(writeHeadersFile(t, "headers:\n"), []string{"Host: evil.example.com"})
	require.NoError(t, err)
	_, err = hm.GetHeaders()
	assert.Error(t, err, "禁止头部应验证失败")

	hm, err = NewHeaderManager(writeHeadersFile(t, "headers:\n"), []string{"Accept-Encoding: zstd"})
	require.NoError(t, err)
	_, err = hm.GetHeaders()
	assert.Error(t, err, "无法解压的编码应验证失败")
}

func TestHeaderManager_ConcurrentGetHeaders(t *testing.T) {
	hm, err := NewHeaderManager(writeHeadersFile(t, "headers:\n  x-shop: \"1\"\n"), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			headers, err := hm.GetHeaders()
			assert.NoError(t, err)
			assert.Equal(t, "1", headers.Get("X-Shop"))
		}()
	}
	wg.Wait()
}

func TestHeaderManager_ReturnsCopies(t *testing.T) {
	hm, err := NewHeaderManager(writeHeadersFile(t, "headers:\n"), nil)
	require.NoError(t, err)

	first, err := hm.GetHeaders()
	require.NoError(t, err)
	first.Set("User-Agent", "Mutated/1.0")
	first.Set("Referer", "https://shop.example.com/")

	second, err := hm.GetHeaders()
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, second.Get("User-Agent"))
	assert.Empty(t, second.Get("Referer"))
}
