package crawlers

import (
	"github.com/RecoveryAshes/ProductFinder/internal/models"
)

// LinkSource 按URL采集链接集合, 实现方不向外返回错误
type LinkSource interface {
	Scrape(url string, limits models.HarvestLimits) models.LinkSet
}

// CombinedSource 依次调用多个来源并合并结果
type CombinedSource []LinkSource

// Scrape 实现 LinkSource
func (c CombinedSource) Scrape(url string, limits models.HarvestLimits) models.LinkSet {
	links := models.NewLinkSet()
	for _, src := range c {
		links.Merge(src.Scrape(url, limits))
	}
	return links
}

// NewLinkSource 按采集模式组装来源
// 每次调用返回独立的浏览器会话, 供单个并发流程独占
func NewLinkSource(c models.HarvestConfig, pool *IdentityPool) LinkSource {
	switch c.Mode {
	case models.ModeStatic:
		return NewStaticCollector(c, pool)
	case models.ModeAll:
		return CombinedSource{NewStaticCollector(c, pool), NewRodHarvester(c, pool)}
	default:
		return NewRodHarvester(c, pool)
	}
}
