package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 批量报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// ReportsDir 报告目录
func (r *Reporter) ReportsDir() string {
	return filepath.Join(r.outputDir, "reports")
}

// GenerateReport 保存批量报告和失败URL列表,返回报告路径
func (r *Reporter) GenerateReport(report *models.BatchReport) (string, error) {
	reportsDir := r.ReportsDir()
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	reportPath, err := r.saveJSONReport(reportsDir, fmt.Sprintf("batch_report_%s.json", report.BatchID), report)
	if err != nil {
		return "", err
	}

	failed := make([]string, 0)
	for _, entry := range report.Results {
		if entry.Error != "" {
			failed = append(failed, entry.PageURL)
		}
	}
	if len(failed) > 0 {
		failedPath := filepath.Join(reportsDir, fmt.Sprintf("failed_urls_%s.txt", report.BatchID))
		if err := os.WriteFile(failedPath, []byte(strings.Join(failed, "\n")+"\n"), 0644); err != nil {
			return "", fmt.Errorf("写入失败URL列表失败: %w", err)
		}
	}

	Infof("✅ 报告已生成: %s", reportPath)
	return reportPath, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) (string, error) {
	path := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// PrintSummary 打印批量提取摘要
func PrintSummary(report *models.BatchReport) {
	Info("==================================================")
	Info("📊 批量提取摘要")
	Info("==================================================")
	Infof("总URL数: %d", report.TotalURLs)
	Infof("✅ 成功: %d", report.SuccessCount)
	Infof("❌ 失败: %d", report.FailCount)
	if report.SkippedCount > 0 {
		Infof("⏭️  跳过(检查点): %d", report.SkippedCount)
	}
	Infof("🖼️  图片总数: %d", report.TotalImages)
	Infof("🌐 升级到渲染: %d", report.Escalations)
	Infof("⏱️  总耗时: %.2f秒", report.Duration)
	Info("==================================================")

	if report.FailCount > 0 {
		Warn("失败的URL:")
		for _, entry := range report.Results {
			if entry.Error != "" {
				Warnf("  - %s: %s", entry.PageURL, entry.Error)
			}
		}
	}
}

// NewProgressBar 创建进度条,输出到w(nil时为stderr)
func NewProgressBar(max int, description string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
