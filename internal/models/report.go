package models

import (
	"encoding/json"
	"time"
)

// TaskStatus 站点处理状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// WebsiteResult 单个站点的处理结果
type WebsiteResult struct {
	Website      string     `json:"website"`
	Status       TaskStatus `json:"status"`
	LandingLinks int        `json:"landing_links"` // 首页采集到的链接数
	Candidates   int        `json:"candidates"`    // 送入分类器的候选数
	GridPages    []string   `json:"grid_pages"`    // 被判定为列表页的URL
	GridLinks    int        `json:"grid_links"`    // 列表页采集到的链接总数
	Products     []string   `json:"products"`      // 商品详情页URL
	Duration     float64    `json:"duration"`      // 秒
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RunReport 一次批量运行的报告
type RunReport struct {
	RunID     string      `json:"run_id"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Duration  float64     `json:"duration"` // 秒
	Mode      HarvestMode `json:"mode"`

	TotalWebsites int `json:"total_websites"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	TotalProducts int `json:"total_products"`

	Websites []WebsiteResult `json:"websites"`

	// 配置快照
	Config HarvestConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
