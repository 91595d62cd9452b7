package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"
)

// BrowserSession 采集循环所需的浏览器原语
// 同一实例不可在并发采集间共享
type BrowserSession interface {
	// Acquire 准备会话, 采集开始时调用
	Acquire() error
	// RotateIdentityIfDue 导航计数是 every 的整数倍时更换身份并重建浏览器
	RotateIdentityIfDue(every int) error
	// Navigate 加载页面, 计数加一
	Navigate(url string) error
	// ExtractLinks 提取当前DOM中的超链接, 超时返回空集合
	ExtractLinks() models.LinkSet
	// ScrollAndMeasureGrowth 滚动到底部并判断页面高度是否增长
	ScrollAndMeasureGrowth(pause time.Duration) (bool, error)
	// Release 关闭浏览器进程, 可重复调用
	Release()
}

const (
	// 覆盖反爬脚本读取的 navigator.webdriver
	webdriverOverrideJS = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

	documentHeightJS = `() => Math.max(
		document.body ? document.body.scrollHeight : 0,
		document.documentElement ? document.documentElement.scrollHeight : 0
	)`

	scrollToBottomJS = `() => window.scrollTo(0, Math.max(
		document.body ? document.body.scrollHeight : 0,
		document.documentElement ? document.documentElement.scrollHeight : 0
	))`
)

// RodSessionConfig 浏览器会话配置
type RodSessionConfig struct {
	Headless       bool
	ChromeBin      string        // 为空时由 launcher 查找或下载
	NavTimeout     time.Duration // 单次导航超时
	DOMWaitTimeout time.Duration // 等待第一个<a>出现
}

// NewRodSessionConfig 从采集配置构造会话配置
func NewRodSessionConfig(c models.HarvestConfig) RodSessionConfig {
	return RodSessionConfig{
		Headless:       c.Headless,
		ChromeBin:      c.ChromeBin,
		NavTimeout:     c.NavTimeout,
		DOMWaitTimeout: c.DOMWaitTimeout,
	}
}

// RodSession 基于 go-rod 的 BrowserSession
// 导航计数跨采集调用保留, 用于按固定间隔轮换身份
type RodSession struct {
	config RodSessionConfig
	pool   *IdentityPool

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	identity    string
	navigations int
	rotations   int

	// 进程启停, 测试中可替换
	startFn func(identity string) error
	stopFn  func()
	sleep   func(time.Duration)
}

// NewRodSession 创建会话, 浏览器进程在首次使用时启动
func NewRodSession(config RodSessionConfig, pool *IdentityPool) *RodSession {
	if pool == nil {
		pool = DefaultIdentityPool()
	}
	s := &RodSession{
		config: config,
		pool:   pool,
		sleep:  time.Sleep,
	}
	s.startFn = s.initialize
	s.stopFn = s.teardown
	return s
}

// Identity 当前绑定的 User-Agent
func (s *RodSession) Identity() string {
	return s.identity
}

// Navigations 已执行的导航次数
func (s *RodSession) Navigations() int {
	return s.navigations
}

// Rotations 已发生的身份轮换次数
func (s *RodSession) Rotations() int {
	return s.rotations
}

func (s *RodSession) live() bool {
	return s.browser != nil
}

// Acquire 选定身份, 进程延迟到轮换检查或导航时启动
func (s *RodSession) Acquire() error {
	if s.identity == "" {
		s.identity = s.pool.Pick()
	}
	return nil
}

// rotationDue 导航前的计数是否触发轮换
func rotationDue(navigations, every int) bool {
	return every > 0 && navigations%every == 0
}

// RotateIdentityIfDue 实现 BrowserSession
func (s *RodSession) RotateIdentityIfDue(every int) error {
	if !rotationDue(s.navigations, every) {
		return nil
	}

	previous := s.identity
	s.stopFn()
	s.identity = s.pool.Pick()
	s.rotations++

	log.Debug().
		Int("navigations", s.navigations).
		Str("previous", previous).
		Str("user_agent", s.identity).
		Msg("轮换浏览器身份")

	return s.startFn(s.identity)
}

func (s *RodSession) ensureLive() error {
	if s.live() {
		return nil
	}
	if s.identity == "" {
		s.identity = s.pool.Pick()
	}
	return s.startFn(s.identity)
}

// initialize 启动浏览器并打开一个隐藏自动化特征的页面
func (s *RodSession) initialize(identity string) error {
	l := launcher.New().
		Headless(s.config.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set(flags.Flag("user-agent"), identity).
		Delete("enable-automation")

	if s.config.ChromeBin != "" {
		l = l.Bin(s.config.ChromeBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return &models.LaunchError{UserAgent: identity, Cause: err}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return &models.LaunchError{UserAgent: identity, Cause: fmt.Errorf("连接浏览器失败: %w", err)}
	}

	s.launcher = l
	s.browser = browser

	page, err := stealth.Page(browser)
	if err != nil {
		s.teardown()
		return &models.LaunchError{UserAgent: identity, Cause: fmt.Errorf("创建页面失败: %w", err)}
	}
	if _, err := page.EvalOnNewDocument(webdriverOverrideJS); err != nil {
		s.teardown()
		return &models.LaunchError{UserAgent: identity, Cause: fmt.Errorf("注入 webdriver 覆盖脚本失败: %w", err)}
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: identity}); err != nil {
		s.teardown()
		return &models.LaunchError{UserAgent: identity, Cause: fmt.Errorf("设置 User-Agent 失败: %w", err)}
	}
	s.page = page

	log.Debug().Str("control_url", controlURL).Str("user_agent", identity).Msg("浏览器已启动")
	return nil
}

// teardown 关闭浏览器并清理用户数据目录
func (s *RodSession) teardown() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Debug().Err(err).Msg("关闭浏览器失败")
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	s.browser = nil
	s.page = nil
	s.launcher = nil
}

// Navigate 实现 BrowserSession
func (s *RodSession) Navigate(url string) error {
	s.navigations++

	if err := s.ensureLive(); err != nil {
		return err
	}
	if s.page == nil {
		return &models.NavigationError{URL: url, Cause: models.ErrSessionReleased}
	}

	err := withPageTimeout(s.page, s.config.NavTimeout, func(page *rod.Page) error {
		if err := page.Navigate(url); err != nil {
			return err
		}
		return page.WaitLoad()
	})
	if err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	return nil
}

// withPageTimeout 在带超时的页面副本上执行 fn, 返回前释放超时计时器
func withPageTimeout(page *rod.Page, d time.Duration, fn func(*rod.Page) error) error {
	timed := page.Timeout(d)
	defer timed.CancelTimeout()
	return fn(timed)
}

// ExtractLinks 实现 BrowserSession
func (s *RodSession) ExtractLinks() models.LinkSet {
	if s.page == nil {
		return models.NewLinkSet()
	}

	err := withPageTimeout(s.page, s.config.DOMWaitTimeout, func(page *rod.Page) error {
		_, err := page.Element("a")
		return err
	})
	if err != nil {
		log.Warn().Err(err).Dur("timeout", s.config.DOMWaitTimeout).Msg("等待超链接元素超时")
		return models.NewLinkSet()
	}

	res, err := s.page.Eval(collectHrefsJS)
	if err != nil {
		log.Warn().Err(err).Msg("读取超链接失败")
		return models.NewLinkSet()
	}

	return resolveHrefs(res.Value.Get("base").Str(), res.Value.Get("hrefs").Arr())
}

// ScrollAndMeasureGrowth 实现 BrowserSession
func (s *RodSession) ScrollAndMeasureGrowth(pause time.Duration) (bool, error) {
	if s.page == nil {
		return false, models.ErrSessionReleased
	}

	before, err := s.documentHeight()
	if err != nil {
		return false, err
	}
	if _, err := s.page.Eval(scrollToBottomJS); err != nil {
		return false, fmt.Errorf("滚动失败: %w", err)
	}

	s.sleep(pause)

	after, err := s.documentHeight()
	if err != nil {
		return false, err
	}
	return after > before, nil
}

func (s *RodSession) documentHeight() (int, error) {
	res, err := s.page.Eval(documentHeightJS)
	if err != nil {
		return 0, fmt.Errorf("读取页面高度失败: %w", err)
	}
	return res.Value.Int(), nil
}

// Release 实现 BrowserSession
func (s *RodSession) Release() {
	if !s.live() && s.launcher == nil {
		return
	}
	s.stopFn()
	log.Debug().Int("navigations", s.navigations).Msg("浏览器会话已释放")
}
