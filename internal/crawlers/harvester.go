package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/rs/zerolog/log"
)

// HarvesterConfig 采集循环参数
type HarvesterConfig struct {
	ScrollPause time.Duration // 滚动后等待懒加载内容渲染
	MaxRetries  int           // 连续无增长达到该次数即停止
	RotateEvery int           // 每N次导航轮换身份, 0 表示不轮换
}

// HarvestSession 单次采集的状态, 调用结束后丢弃
type HarvestSession struct {
	URL        string
	Limits     models.HarvestLimits
	Links      models.LinkSet
	Scrolls    int // 已执行的滚动次数
	Retries    int // 连续无增长次数
	Passes     int // 提取次数
	State      models.HarvestState
	StopReason models.StopReason
	Err        error
	Duration   time.Duration
}

func (hs *HarvestSession) stop(reason models.StopReason) {
	hs.State = models.StateDone
	hs.StopReason = reason
}

func (hs *HarvestSession) abort(err error) {
	hs.State = models.StateAborted
	hs.StopReason = models.StopError
	hs.Err = err
}

// Harvester 滚动/提取/停止状态机
// 一个 Harvester 独占一个 BrowserSession, 不可并发调用
type Harvester struct {
	session BrowserSession
	config  HarvesterConfig
	pacer   Pacer
}

// NewHarvester 创建采集器
func NewHarvester(session BrowserSession, config HarvesterConfig, pacer Pacer) *Harvester {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if pacer == nil {
		pacer = NewJitterPacer(0, 0)
	}
	return &Harvester{
		session: session,
		config:  config,
		pacer:   pacer,
	}
}

// NewRodHarvester 按采集配置创建基于 go-rod 的采集器
func NewRodHarvester(c models.HarvestConfig, pool *IdentityPool) *Harvester {
	session := NewRodSession(NewRodSessionConfig(c), pool)
	return NewHarvester(session, HarvesterConfig{
		ScrollPause: c.ScrollPause,
		MaxRetries:  c.MaxRetries,
		RotateEvery: c.RotateEvery,
	}, NewJitterPacer(c.JitterMin, c.JitterMax))
}

// Scrape 采集 url 上的全部超链接, 从不返回错误
func (h *Harvester) Scrape(url string, limits models.HarvestLimits) models.LinkSet {
	return h.Harvest(url, limits).Links
}

// Harvest 与 Scrape 相同, 但返回完整的会话状态
func (h *Harvester) Harvest(url string, limits models.HarvestLimits) (hs *HarvestSession) {
	hs = &HarvestSession{
		URL:    url,
		Limits: limits,
		Links:  models.NewLinkSet(),
		State:  models.StateStarting,
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			hs.abort(fmt.Errorf("采集过程panic: %v", r))
		}
		h.session.Release()
		hs.Duration = time.Since(start)

		if hs.Err != nil {
			log.Warn().
				Err(hs.Err).
				Str("url", url).
				Str("state", string(hs.State)).
				Int("links", hs.Links.Len()).
				Msg("采集中止, 返回已获取的链接")
			return
		}
		log.Info().
			Str("url", url).
			Int("links", hs.Links.Len()).
			Int("scrolls", hs.Scrolls).
			Str("stop", string(hs.StopReason)).
			Dur("duration", hs.Duration).
			Msg("采集完成")
	}()

	log.Debug().Str("url", url).Str("limits", limits.String()).Msg("开始采集")

	if err := h.session.Acquire(); err != nil {
		hs.abort(err)
		return hs
	}
	if err := h.session.RotateIdentityIfDue(h.config.RotateEvery); err != nil {
		hs.abort(err)
		return hs
	}
	if err := h.session.Navigate(url); err != nil {
		hs.abort(err)
		return hs
	}

	h.loop(hs)
	return hs
}

func (h *Harvester) loop(hs *HarvestSession) {
	for {
		hs.State = models.StateExtracting
		added := hs.Links.Merge(h.session.ExtractLinks())
		hs.Passes++

		log.Debug().
			Str("url", hs.URL).
			Int("pass", hs.Passes).
			Int("added", added).
			Int("links", hs.Links.Len()).
			Msg("提取链接")

		hs.State = models.StateDeciding
		if limit := hs.Limits.MaxLinks; limit != nil && hs.Links.Len() >= *limit {
			hs.stop(models.StopLinkBudget)
			return
		}
		if limit := hs.Limits.MaxScrolls; limit != nil && hs.Scrolls >= *limit {
			hs.stop(models.StopScrollLimit)
			return
		}

		hs.State = models.StateScrolling
		grew, err := h.session.ScrollAndMeasureGrowth(h.config.ScrollPause)
		if err != nil {
			hs.abort(fmt.Errorf("第%d次滚动失败: %w", hs.Scrolls+1, err))
			return
		}
		hs.Scrolls++

		if grew {
			hs.Retries = 0
		} else {
			hs.Retries++
			if hs.Retries >= h.config.MaxRetries {
				hs.stop(models.StopStagnation)
				return
			}
		}

		h.pacer.Pause()
	}
}
