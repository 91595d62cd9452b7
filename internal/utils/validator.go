package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
)

const (
	// MaxUserAgentLength User-Agent 最大长度(字节)
	MaxUserAgentLength = 512
)

// IdentityValidator 校验身份池中的 User-Agent
type IdentityValidator struct {
	// valueRegex 可打印ASCII, 不含制表符和控制字符
	valueRegex *regexp.Regexp

	// productRegex 至少包含一个 product/version 标记, 如 Mozilla/5.0
	productRegex *regexp.Regexp

	maxLength int
}

// NewIdentityValidator 创建验证器
func NewIdentityValidator() *IdentityValidator {
	return &IdentityValidator{
		valueRegex:   regexp.MustCompile(`^[\x20-\x7E]+$`),
		productRegex: regexp.MustCompile(`[A-Za-z0-9!#$%&'*+.^_|~-]+/[A-Za-z0-9.]+`),
		maxLength:    MaxUserAgentLength,
	}
}

// ValidateUserAgent 校验单个 User-Agent, index 从1开始, 用于错误定位
func (iv *IdentityValidator) ValidateUserAgent(index int, ua string) error {
	if strings.TrimSpace(ua) == "" {
		return &models.ValidationError{
			Index:  index,
			Value:  ua,
			Reason: "User-Agent 不能为空",
		}
	}

	if len(ua) > iv.maxLength {
		return &models.ValidationError{
			Index:      index,
			Value:      ua[:32] + "...",
			Reason:     fmt.Sprintf("User-Agent 过长: %d 字节 (最大 %d)", len(ua), iv.maxLength),
			Suggestion: fmt.Sprintf("将值缩短至 %d 字节以内", iv.maxLength),
		}
	}

	if !iv.valueRegex.MatchString(ua) {
		return &models.ValidationError{
			Index:      index,
			Value:      ua,
			Reason:     "User-Agent 包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}

	if !iv.productRegex.MatchString(ua) {
		return &models.ValidationError{
			Index:      index,
			Value:      ua,
			Reason:     "缺少 product/version 标记",
			Suggestion: "使用完整的浏览器 User-Agent, 如 'Mozilla/5.0 (...)'",
		}
	}

	return nil
}

// Validate 校验整个列表, 返回第一个错误
func (iv *IdentityValidator) Validate(agents []string) error {
	for i, ua := range agents {
		if err := iv.ValidateUserAgent(i+1, ua); err != nil {
			return err
		}
	}
	return nil
}
