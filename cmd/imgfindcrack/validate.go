package main

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
)

// ValidateExtractFlags 验证extract命令参数
func ValidateExtractFlags(pageURL, mode string) error {
	if _, err := models.NewPageReference(pageURL); err != nil {
		return fmt.Errorf("无效的页面URL: %w", err)
	}
	if _, err := models.ParseScrapeMode(mode); err != nil {
		return err
	}
	return nil
}

// ValidateFetchFlags 验证fetch命令参数
// data: URI不做网络校验,referer可以为空
func ValidateFetchFlags(imageURL, referer string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return fmt.Errorf("图片URL不能为空")
	}
	if !strings.HasPrefix(strings.ToLower(imageURL), "data:") {
		if err := models.ValidateURL(imageURL); err != nil {
			return fmt.Errorf("无效的图片URL: %w", err)
		}
	}
	if referer != "" {
		if err := models.ValidateURL(referer); err != nil {
			return fmt.Errorf("无效的referer: %w", err)
		}
	}
	return nil
}

// ValidateBatchFlags 验证batch命令参数
func ValidateBatchFlags(urlFile string, concurrency int, mode string) error {
	if urlFile == "" {
		return fmt.Errorf("URL文件路径不能为空")
	}
	// 0表示使用配置文件中的值
	if concurrency < 0 || concurrency > 32 {
		return fmt.Errorf("并发数必须在1-32之间,当前值: %d", concurrency)
	}
	if _, err := models.ParseScrapeMode(mode); err != nil {
		return err
	}
	return nil
}
