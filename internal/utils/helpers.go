package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

// ReadURLsFromFile 从文件中读取商品页面URL列表
func ReadURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开URL文件失败: %w", err)
	}
	defer file.Close()

	urls, err := ReadURLs(file)
	if err != nil {
		return nil, err
	}

	Infof("从文件加载了 %d 个URL", len(urls))
	return urls, nil
}

// ReadURLs 逐行读取页面URL
// 空行和#注释跳过;缺少协议的补全为https;重复URL只保留第一次
func ReadURLs(r io.Reader) ([]string, error) {
	urls := make([]string, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		page, err := models.NewPageReference(line)
		if err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		normalized := page.String()
		if _, dup := seen[normalized]; dup {
			Debugf("跳过重复URL (行 %d): %s", lineNum, normalized)
			continue
		}
		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取URL文件失败: %w", err)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("URL文件中没有有效的URL")
	}

	return urls, nil
}
