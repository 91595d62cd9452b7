package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/RecoveryAshes/ProductFinder/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticCollector 不执行JavaScript的单次抓取, 只读取服务端返回的<a href>
// 相对链接由 colly 按响应URL与 <base href> 解析
type StaticCollector struct {
	pool    *IdentityPool
	timeout time.Duration
}

// NewStaticCollector 创建静态采集器
func NewStaticCollector(c models.HarvestConfig, pool *IdentityPool) *StaticCollector {
	if pool == nil {
		pool = DefaultIdentityPool()
	}
	timeout := c.StaticTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StaticCollector{
		pool:    pool,
		timeout: timeout,
	}
}

// Scrape 实现 LinkSource
func (sc *StaticCollector) Scrape(targetURL string, limits models.HarvestLimits) models.LinkSet {
	links := models.NewLinkSet()
	userAgent := sc.pool.Pick()

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(sc.timeout)

	c.OnRequest(func(r *colly.Request) {
		// 显式声明 br, 之后需要手动解压
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		utils.Debugf("静态抓取: %s", r.URL.String())
	})

	// 先于 OnHTML 执行, 解压后的内容供 OnHTML 解析
	c.OnResponse(func(r *colly.Response) {
		body, err := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s]: %v", r.Request.URL, err)
			return
		}
		r.Body = body
	})

	// AbsoluteURL 遵循页面中第一个 <base href>
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if href == "" {
			return
		}
		if link, ok := resolveLink(nil, e.Request.AbsoluteURL(href)); ok {
			links.Add(link)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		utils.Warnf("静态抓取失败 [%s] (状态码=%d): %v", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(targetURL); err != nil {
		utils.Warnf("静态抓取失败 [%s]: %v", targetURL, err)
	}

	if limit := limits.MaxLinks; limit != nil && links.Len() >= *limit {
		utils.Debugf("静态抓取达到链接预算 [%s]: %d >= %d", targetURL, links.Len(), *limit)
	}
	utils.Infof("静态抓取完成 [%s]: %d 个链接", targetURL, links.Len())
	return links
}

// decompressResponse 根据Content-Encoding头部解压响应体
// colly 已自动解开 gzip 时按魔数判断, 直接返回原始内容
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return readAll(reader, "gzip")

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		return readAll(reader, "deflate")

	case "br":
		return readAll(brotli.NewReader(bytes.NewReader(body)), "brotli")

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}

func readAll(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s读取失败: %w", name, err)
	}
	return out, nil
}
