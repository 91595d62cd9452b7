package models

import (
	"errors"
	"fmt"
)

// ErrSessionReleased 会话已释放后仍调用了页面操作
var ErrSessionReleased = errors.New("浏览器会话未初始化或已释放")

// LaunchError 浏览器进程启动或连接失败
// 对单次采集是致命错误,由 Harvester 捕获并返回部分结果
type LaunchError struct {
	// UserAgent 启动时绑定的身份
	UserAgent string

	// Cause 底层错误 (launcher / CDP 连接)
	Cause error
}

// Error 实现error接口
func (e *LaunchError) Error() string {
	return fmt.Sprintf("浏览器启动失败: %v", e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// NavigationError 页面加载失败
type NavigationError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *NavigationError) Error() string {
	return fmt.Sprintf("页面加载失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// ValidationError 身份(User-Agent)验证错误
type ValidationError struct {
	// Index 出错条目在来源列表中的位置(从1开始)
	Index int

	// Value 出错的原始值(可能被截断)
	Value string

	// Reason 错误原因
	Reason string

	// Suggestion 修复建议 (可选)
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("User-Agent 验证失败 [第%d项 %q]: %s", e.Index, e.Value, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
