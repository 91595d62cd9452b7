package models

import (
	"fmt"
	"time"
)

// HarvestMode 采集模式
type HarvestMode string

const (
	ModeAll     HarvestMode = "all"     // 静态+动态
	ModeStatic  HarvestMode = "static"  // 仅静态(colly)
	ModeDynamic HarvestMode = "dynamic" // 仅动态(浏览器滚动)
)

// ParseHarvestMode 解析采集模式, 空字符串视为 dynamic
func ParseHarvestMode(s string) (HarvestMode, error) {
	switch HarvestMode(s) {
	case "", ModeDynamic:
		return ModeDynamic, nil
	case ModeStatic, ModeAll:
		return HarvestMode(s), nil
	}
	return "", fmt.Errorf("无效的采集模式: %s (可选: all, static, dynamic)", s)
}

// HarvestState 采集状态机状态
type HarvestState string

const (
	StateStarting   HarvestState = "STARTING"
	StateExtracting HarvestState = "EXTRACTING"
	StateDeciding   HarvestState = "DECIDING"
	StateScrolling  HarvestState = "SCROLLING"
	StateDone       HarvestState = "DONE"
	StateAborted    HarvestState = "ABORTED"
)

// StopReason 终止原因
type StopReason string

const (
	StopNone        StopReason = ""
	StopLinkBudget  StopReason = "link_budget"
	StopScrollLimit StopReason = "scroll_budget"
	StopStagnation  StopReason = "stagnation"
	StopError       StopReason = "error"
)

// HarvestLimits 单次采集的预算, nil 表示不限
type HarvestLimits struct {
	MaxScrolls *int
	MaxLinks   *int
}

// Limit 构造一个已设置的预算值
func Limit(n int) *int {
	return &n
}

// NewHarvestLimits 由配置值构造预算, 负数表示不限
func NewHarvestLimits(maxScrolls, maxLinks int) HarvestLimits {
	var l HarvestLimits
	if maxScrolls >= 0 {
		l.MaxScrolls = Limit(maxScrolls)
	}
	if maxLinks >= 0 {
		l.MaxLinks = Limit(maxLinks)
	}
	return l
}

// String 便于日志输出
func (l HarvestLimits) String() string {
	return fmt.Sprintf("max_scrolls=%s max_links=%s", limitString(l.MaxScrolls), limitString(l.MaxLinks))
}

func limitString(p *int) string {
	if p == nil {
		return "unlimited"
	}
	return fmt.Sprint(*p)
}

// HarvestConfig 采集器配置
type HarvestConfig struct {
	Mode           HarvestMode   `mapstructure:"mode" json:"mode"`
	Headless       bool          `mapstructure:"headless" json:"headless"`
	ScrollPause    time.Duration `mapstructure:"scroll_pause" json:"scroll_pause"`         // 滚动后等待渲染
	MaxRetries     int           `mapstructure:"max_retries" json:"max_retries"`           // 连续无增长次数上限
	RotateEvery    int           `mapstructure:"rotate_every" json:"rotate_every"`         // 每N次导航轮换身份, 0 关闭
	MaxScrolls     int           `mapstructure:"max_scrolls" json:"max_scrolls"`           // 首页滚动预算, -1 不限
	MaxLinks       int           `mapstructure:"max_links" json:"max_links"`               // 首页链接预算, -1 不限
	GridMaxScrolls int           `mapstructure:"grid_max_scrolls" json:"grid_max_scrolls"` // 列表页滚动预算
	GridMaxLinks   int           `mapstructure:"grid_max_links" json:"grid_max_links"`     // 列表页链接预算
	DOMWaitTimeout time.Duration `mapstructure:"dom_wait_timeout" json:"dom_wait_timeout"` // 等待第一个<a>出现
	NavTimeout     time.Duration `mapstructure:"nav_timeout" json:"nav_timeout"`
	JitterMin      time.Duration `mapstructure:"jitter_min" json:"jitter_min"`
	JitterMax      time.Duration `mapstructure:"jitter_max" json:"jitter_max"`
	ChromeBin      string        `mapstructure:"chrome_bin" json:"chrome_bin,omitempty"`
	StaticTimeout  time.Duration `mapstructure:"static_timeout" json:"static_timeout"`
}

// DefaultHarvestConfig 默认采集配置
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		Mode:           ModeDynamic,
		Headless:       true,
		ScrollPause:    2 * time.Second,
		MaxRetries:     3,
		RotateEvery:    5,
		MaxScrolls:     10,
		MaxLinks:       -1,
		GridMaxScrolls: 10,
		GridMaxLinks:   -1,
		DOMWaitTimeout: 10 * time.Second,
		NavTimeout:     30 * time.Second,
		JitterMin:      1500 * time.Millisecond,
		JitterMax:      4 * time.Second,
		StaticTimeout:  30 * time.Second,
	}
}

// Validate 验证配置
func (c *HarvestConfig) Validate() error {
	if _, err := ParseHarvestMode(string(c.Mode)); err != nil {
		return err
	}
	if c.ScrollPause < 0 || c.ScrollPause > time.Minute {
		return fmt.Errorf("滚动等待时间必须在0-60秒之间")
	}
	if c.MaxRetries < 1 || c.MaxRetries > 50 {
		return fmt.Errorf("无增长重试次数必须在1-50之间")
	}
	if c.RotateEvery < 0 {
		return fmt.Errorf("身份轮换间隔不能为负数")
	}
	if c.DOMWaitTimeout <= 0 {
		return fmt.Errorf("DOM等待超时必须大于0")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("导航超时必须大于0")
	}
	// 区间必须严格递增, 否则每次停顿都相同
	if c.JitterMin < 0 || c.JitterMax <= c.JitterMin {
		return fmt.Errorf("抖动区间无效: [%s, %s], 上限必须大于下限", c.JitterMin, c.JitterMax)
	}
	return nil
}

// LandingLimits 首页采集预算
func (c *HarvestConfig) LandingLimits() HarvestLimits {
	return NewHarvestLimits(c.MaxScrolls, c.MaxLinks)
}

// GridLimits 列表页采集预算
func (c *HarvestConfig) GridLimits() HarvestLimits {
	return NewHarvestLimits(c.GridMaxScrolls, c.GridMaxLinks)
}
