// Package crawlers 提供动态(go-rod)与静态(Colly)两种链接采集方式
//
// # 概述
//
// 核心是 Harvester: 驱动一个无头浏览器在单个页面上反复"提取-滚动",
// 直到命中链接预算、滚动预算或连续无增长次数上限, 返回去重后的绝对URL集合。
// Scrape 从不向外返回错误, 任何失败都只会让结果变少。
//
// # 核心组件
//
// ## Harvester
//
// 状态机: STARTING → EXTRACTING → DECIDING → SCROLLING → EXTRACTING ... → DONE,
// 任意状态出错进入 ABORTED。每轮依次检查: 链接预算 → 滚动预算 → 无增长次数。
//
//	h := NewRodHarvester(cfg, pool)
//	links := h.Scrape("https://shop.example", models.HarvestLimits{MaxScrolls: models.Limit(10)})
//
// ## RodSession (BrowserSession)
//
// 持有一个浏览器进程。启动参数关闭 GPU/沙箱/AutomationControlled,
// 页面注入 go-rod/stealth 脚本并覆盖 navigator.webdriver。
// 导航计数跨采集保留, 每 RotateEvery 次导航前更换 User-Agent 并重建进程。
// 每次 Scrape 结束都会 Release, 保证出错路径不泄漏进程。
//
// ## StaticCollector
//
// Colly 单次请求, 手动解压 gzip/deflate/br 后由 OnHTML 回调提取<a href>。
// 用于 static 模式, 或在 all 模式下与 Harvester 合并结果。
//
// ## IdentityPool
//
// 只读 User-Agent 池, 并发采集间共享, 均匀随机有放回选择。
//
// ## ResourceMonitor
//
// 用 gopsutil 读取可用内存与CPU负载, 计算允许同时运行的浏览器会话数。
//
// # 并发
//
// Harvester 与 RodSession 不是并发安全的, 每个并发流程各自创建一份;
// IdentityPool 与 ResourceMonitor 可共享。
package crawlers
