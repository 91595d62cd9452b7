package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RecoveryAshes/ProductFinder/internal/utils"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// LLMClassifier 通过 OpenAI 兼容的 chat/completions 接口分类
// OpenAI、Ollama(/v1) 与 NVIDIA NIM 都提供该接口
type LLMClassifier struct {
	client   *openai.Client
	endpoint string
	model    string
	apiKey   string
	limiter  *rate.Limiter
	redactor *utils.HeaderRedactor
}

// NewLLMClassifier 创建分类器, BaseURL 需已填充
func NewLLMClassifier(cfg Config) *LLMClassifier {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &LLMClassifier{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: baseURL + "/chat/completions",
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(limit, 1),
		redactor: utils.NewHeaderRedactor(),
	}
}

// linksPayload 模型输出; 同时兼容 product_links / product_grid_links 字段名
type linksPayload struct {
	Links            []string `json:"links"`
	ProductLinks     []string `json:"product_links"`
	ProductGridLinks []string `json:"product_grid_links"`
}

// Classify 实现 Classifier
func (c *LLMClassifier) Classify(ctx context.Context, urls []string, role Role) ([]string, error) {
	if len(urls) == 0 {
		return []string{}, nil
	}
	prompt, ok := systemPrompts[role]
	if !ok {
		return nil, fmt.Errorf("未知的链接角色: %q", role)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待限流失败: %w", err)
	}

	utils.Debugf("分类请求 [%s] %d 个链接 -> %s (%s)",
		role, len(urls), c.endpoint, c.redactor.RedactToString(c.requestHeaders()))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(urls)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, describeAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("分类响应没有 choices")
	}

	links, err := parseLinks(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	kept := filterToInput(urls, links)
	utils.Debugf("分类结果 [%s]: %d/%d", role, len(kept), len(urls))
	return kept, nil
}

// requestHeaders 客户端发送的头部, 仅用于脱敏后的日志
func (c *LLMClassifier) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

// describeAPIError 把 go-openai 的错误整理为带状态码的信息
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("分类服务返回 %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("分类服务返回 %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("分类请求失败: %w", err)
}

// parseLinks 解析模型返回的 JSON, 容忍 ```json 代码块包裹
func parseLinks(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return []string{}, nil
	}

	// 有的模型直接返回数组
	if strings.HasPrefix(content, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(content), &arr); err != nil {
			return nil, fmt.Errorf("模型输出不是合法的链接数组: %w", err)
		}
		return arr, nil
	}

	var payload linksPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("模型输出不是合法的JSON: %w", err)
	}

	links := make([]string, 0, len(payload.Links)+len(payload.ProductLinks)+len(payload.ProductGridLinks))
	links = append(links, payload.Links...)
	links = append(links, payload.ProductLinks...)
	links = append(links, payload.ProductGridLinks...)
	return links, nil
}
