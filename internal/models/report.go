package models

import (
	"encoding/json"
	"time"
)

// BatchReport 批量提取报告
type BatchReport struct {
	BatchID    string `json:"batch_id"`
	SourceFile string `json:"source_file"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 汇总
	TotalURLs    int `json:"total_urls"`
	SuccessCount int `json:"success_count"`
	FailCount    int `json:"fail_count"`
	SkippedCount int `json:"skipped_count"` // 检查点中已完成
	TotalImages  int `json:"total_images"`
	Escalations  int `json:"escalations"`

	Results []BatchEntry `json:"results"`

	// 配置快照
	Config ScrapeConfig `json:"config"`
}

// BatchEntry 单个页面的结果
type BatchEntry struct {
	PageURL    string       `json:"page_url"`
	Images     []string     `json:"images"`
	TotalFound int          `json:"total_found"`
	Stats      *ScrapeStats `json:"stats,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ToJSON 序列化为JSON
func (r *BatchReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *BatchReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
