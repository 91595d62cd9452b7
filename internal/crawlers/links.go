package crawlers

import (
	"net/url"
	"strings"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/ysmood/gson"
)

// collectHrefsJS 一次性读取所有<a>的 href 属性值
// 读取失败或非字符串的位置返回 null, 由 Go 侧逐项判断
const collectHrefsJS = `() => {
	const hrefs = [];
	for (const a of document.querySelectorAll('a')) {
		try {
			hrefs.push(a.getAttribute('href') === null ? null : a.href);
		} catch (e) {
			hrefs.push(null);
		}
	}
	return { base: document.location.href, hrefs: hrefs };
}`

// readHref 读取单个元素的 href, 不可用时返回 false
func readHref(v gson.JSON) (string, bool) {
	s, ok := v.Val().(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// resolveLink 将 href 解析为相对 base 的绝对URL
func resolveLink(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return "", false
	}
	if (ref.Scheme == "http" || ref.Scheme == "https") && ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}

// parseBase 解析页面地址, 非绝对地址或无主机名(about:blank)时返回 nil
func parseBase(pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil
	}
	return base
}

// resolveHrefs 把浏览器返回的 href 列表转换为集合
func resolveHrefs(pageURL string, values []gson.JSON) models.LinkSet {
	base := parseBase(pageURL)
	links := models.NewLinkSet()
	for _, v := range values {
		href, ok := readHref(v)
		if !ok {
			continue
		}
		if abs, ok := resolveLink(base, href); ok {
			links.Add(abs)
		}
	}
	return links
}
