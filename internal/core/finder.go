package core

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/classifier"
	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/RecoveryAshes/ProductFinder/internal/utils"
	"golang.org/x/net/publicsuffix"
)

// Finder 单个站点的商品发现流程
// 首页采集 → 筛选列表页 → 采集列表页 → 筛选商品页
type Finder struct {
	source     crawlers.LinkSource
	classifier classifier.Classifier
	harvest    models.HarvestConfig
	pipeline   PipelineConfig
	batchSize  int
}

// NewFinder 创建流程, source 由调用方独占
func NewFinder(source crawlers.LinkSource, cls classifier.Classifier, harvest models.HarvestConfig, pipeline PipelineConfig, batchSize int) *Finder {
	if batchSize <= 0 {
		batchSize = classifier.DefaultBatchSize
	}
	return &Finder{
		source:     source,
		classifier: cls,
		harvest:    harvest,
		pipeline:   pipeline,
		batchSize:  batchSize,
	}
}

// Find 处理一个站点; 分类失败按空结果处理, 不会中断流程
func (f *Finder) Find(ctx context.Context, website string) models.WebsiteResult {
	start := time.Now()
	result := models.WebsiteResult{
		Website:   website,
		Status:    models.TaskStatusPending,
		GridPages: []string{},
		Products:  []string{},
	}
	logger := utils.ForWebsite(website)
	defer func() {
		result.Duration = time.Since(start).Seconds()
	}()

	// 1. 首页
	logger.Info().Str("limits", f.harvest.LandingLimits().String()).Msg("🔍 采集首页链接")
	landing := f.source.Scrape(website, f.harvest.LandingLimits())
	result.LandingLinks = landing.Len()
	if landing.Len() == 0 {
		result.Status = models.TaskStatusFailed
		result.ErrorMessage = "首页未采集到任何链接"
		return result
	}

	candidates := f.candidates(website, landing)
	result.Candidates = len(candidates)

	// 2. 列表页
	grids, err := classifier.ClassifyInBatches(ctx, f.classifier, candidates, classifier.RoleGridPage, f.batchSize)
	if ctx.Err() != nil {
		return f.cancelled(result)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("列表页分类失败, 按空结果处理")
		grids = nil
	}
	if len(grids) > f.pipeline.MaxGridPages {
		grids = grids[:f.pipeline.MaxGridPages]
	}
	result.GridPages = append(result.GridPages, grids...)
	logger.Info().Int("candidates", len(candidates)).Int("grid_pages", len(grids)).Msg("识别列表页")

	// 3. 采集列表页
	gridLinks := models.NewLinkSet()
	for _, grid := range grids {
		if ctx.Err() != nil {
			return f.cancelled(result)
		}
		links := f.source.Scrape(grid, f.harvest.GridLimits())
		added := gridLinks.Merge(links)
		logger.Debug().Str("grid", grid).Int("links", links.Len()).Int("added", added).Msg("列表页采集完成")
	}
	result.GridLinks = gridLinks.Len()

	// 4. 商品页
	productCandidates := f.candidates(website, gridLinks)
	products, err := classifier.ClassifyInBatches(ctx, f.classifier, productCandidates, classifier.RoleProductPage, f.batchSize)
	if ctx.Err() != nil {
		return f.cancelled(result)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("商品页分类失败, 按空结果处理")
		products = nil
	}
	if len(products) > f.pipeline.MaxProducts {
		products = products[:f.pipeline.MaxProducts]
	}
	result.Products = append(result.Products, products...)
	result.Status = models.TaskStatusCompleted

	logger.Info().Int("products", len(products)).Msg("✅ 商品发现完成")
	return result
}

func (f *Finder) cancelled(result models.WebsiteResult) models.WebsiteResult {
	result.Status = models.TaskStatusCancelled
	result.ErrorMessage = "已取消"
	return result
}

// candidates 过滤出可送入分类器的链接: http(s)、可选同站、排除站点自身, 并截断
func (f *Finder) candidates(website string, links models.LinkSet) []string {
	site := registrableDomain(website)
	out := make([]string, 0, f.pipeline.MaxCandidates)

	for _, link := range links.Sorted() {
		if len(out) >= f.pipeline.MaxCandidates {
			break
		}
		if !models.IsHTTPURL(link) || sameDocument(link, website) {
			continue
		}
		if f.pipeline.SameSite && registrableDomain(link) != site {
			continue
		}
		out = append(out, link)
	}
	return out
}

// registrableDomain 返回 eTLD+1; IP、localhost 等无法计算时退回主机名
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// sameDocument 忽略片段和末尾斜杠后是否为同一页面
func sameDocument(a, b string) bool {
	norm := func(s string) string {
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		return strings.TrimRight(s, "/")
	}
	return norm(a) == norm(b)
}
