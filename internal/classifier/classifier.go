// Package classifier 将采集到的链接按角色(商品列表页/商品详情页)筛选
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/utils"
)

// Role 链接角色
type Role string

const (
	// RoleGridPage 商品列表页(分类页、集合页)
	RoleGridPage Role = "grid-page"
	// RoleProductPage 商品详情页
	RoleProductPage Role = "product-page"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleGridPage || r == RoleProductPage
}

// DefaultBatchSize 每批发送给分类器的链接数
const DefaultBatchSize = 10

// Classifier 从一批链接中挑出符合角色的子集
// 空输入返回空输出; 输出只包含输入中出现过的链接
type Classifier interface {
	Classify(ctx context.Context, urls []string, role Role) ([]string, error)
}

// 支持的分类器提供方
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderNvidia    = "nvidia"
	ProviderHeuristic = "heuristic"
)

// Config 分类器配置
type Config struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BatchSize         int           `mapstructure:"batch_size"`
}

// DefaultConfig 默认使用本地 Ollama 的 llama3.1
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderOllama,
		Model:             "llama3.1",
		Timeout:           60 * time.Second,
		RequestsPerSecond: 1,
		BatchSize:         DefaultBatchSize,
	}
}

// defaultBaseURL 各提供方的 OpenAI 兼容接口地址
func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderNvidia:
		return "https://integrate.api.nvidia.com/v1"
	default:
		return "http://localhost:11434/v1"
	}
}

// New 根据提供方创建分类器
func New(cfg Config) (Classifier, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderHeuristic:
		return NewHeuristicClassifier(), nil
	case ProviderOpenAI, ProviderNvidia:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("分类器 %s 需要 api_key (可通过环境变量 PRODUCTFINDER_CLASSIFIER_API_KEY 设置)", provider)
		}
		fallthrough
	case ProviderOllama:
		if cfg.Model == "" {
			return nil, fmt.Errorf("分类器 %s 未配置 model", provider)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultBaseURL(provider)
		}
		return NewLLMClassifier(cfg), nil
	default:
		return nil, fmt.Errorf("未知的分类器: %q (可选: openai, ollama, nvidia, heuristic)", cfg.Provider)
	}
}

// ClassifyInBatches 分批调用分类器并合并去重
// 单批失败只记录日志并跳过; 仅当所有批次都失败或 ctx 取消时返回错误
func ClassifyInBatches(ctx context.Context, c Classifier, urls []string, role Role, batchSize int) ([]string, error) {
	if len(urls) == 0 {
		return []string{}, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := make([]string, 0)
	seen := make(map[string]struct{})
	var errs []error
	batches := 0

	for start := 0; start < len(urls); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+batchSize, len(urls))
		batches++

		matched, err := c.Classify(ctx, urls[start:end], role)
		if err != nil {
			utils.Warnf("分类批次失败 [%s] %d-%d: %v", role, start, end, err)
			errs = append(errs, err)
			continue
		}

		for _, u := range matched {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			result = append(result, u)
		}
	}

	if len(errs) == batches {
		return result, fmt.Errorf("所有分类批次均失败: %w", errors.Join(errs...))
	}
	return result, nil
}

// filterToInput 只保留输入中存在的链接, 去重并保持模型返回的顺序
func filterToInput(input, output []string) []string {
	allowed := make(map[string]struct{}, len(input))
	for _, u := range input {
		allowed[u] = struct{}{}
	}

	kept := make([]string, 0, len(output))
	for _, u := range output {
		u = strings.TrimSpace(u)
		if _, ok := allowed[u]; !ok {
			continue
		}
		delete(allowed, u)
		kept = append(kept, u)
	}
	return kept
}
