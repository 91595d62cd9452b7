package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/ProductFinder/internal/core"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
)

// ValidateFlags 验证命令行参数与合并后的配置
func ValidateFlags(targetURL, urlFile string, cfg *core.Config) error {
	if targetURL != "" && urlFile != "" {
		return fmt.Errorf("--url 与 --url-file 不能同时使用")
	}

	if targetURL != "" {
		normalized, err := NormalizeURL(targetURL)
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
		if err := models.ValidateURL(normalized); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	if cfg == nil {
		return fmt.Errorf("配置未加载")
	}

	if _, err := models.ParseHarvestMode(string(cfg.Harvest.Mode)); err != nil {
		return fmt.Errorf("无效的采集模式: %s (有效值: dynamic, static, all)", cfg.Harvest.Mode)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return nil
}

// NormalizeURL 规范化URL, 没有协议时默认使用https
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", fmt.Errorf("URL不能为空")
	}

	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
