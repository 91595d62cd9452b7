package classifier

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

var (
	productPathRe = regexp.MustCompile(`(?i)/(product|products|item|items|p|dp|gp/product)/[^/]+`)
	productIDRe   = regexp.MustCompile(`(?i)[-_/]\d{4,}(\.html?)?/?$`)
	gridPathRe    = regexp.MustCompile(`(?i)/(category|categories|collection|collections|c|shop|catalog|catalogue|department|departments|browse|b)(/|$)`)
	excludedRe    = regexp.MustCompile(`(?i)/(cart|basket|login|logout|signin|sign-in|register|account|checkout|help|faq|privacy|terms|contact|about|blog|careers|wishlist)(/|$|\.)`)

	productQueryKeys = []string{"pid", "product_id", "productid", "sku"}
	gridQueryKeys    = []string{"cat", "cid", "category", "category_id"}
)

// HeuristicClassifier 基于URL路径规则的离线分类器
type HeuristicClassifier struct{}

// NewHeuristicClassifier 创建离线分类器
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Classify 实现 Classifier
func (h *HeuristicClassifier) Classify(ctx context.Context, urls []string, role Role) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := make([]string, 0)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if matchRole(u, role) {
			matched = append(matched, raw)
		}
	}
	return filterToInput(urls, matched), nil
}

func matchRole(u *url.URL, role Role) bool {
	if excludedRe.MatchString(u.Path) {
		return false
	}
	switch role {
	case RoleProductPage:
		return isProduct(u)
	case RoleGridPage:
		return !isProduct(u) && isGrid(u)
	}
	return false
}

func isProduct(u *url.URL) bool {
	if productPathRe.MatchString(u.Path) || productIDRe.MatchString(u.Path) {
		return true
	}
	return hasQueryKey(u, productQueryKeys)
}

func isGrid(u *url.URL) bool {
	if gridPathRe.MatchString(u.Path) {
		return true
	}
	return hasQueryKey(u, gridQueryKeys)
}

func hasQueryKey(u *url.URL, keys []string) bool {
	q := u.Query()
	for name := range q {
		for _, key := range keys {
			if strings.EqualFold(name, key) && q.Get(name) != "" {
				return true
			}
		}
	}
	return false
}
