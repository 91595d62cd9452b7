package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classifierFunc 用函数实现 Classifier
type classifierFunc func(ctx context.Context, urls []string, role Role) ([]string, error)

func (f classifierFunc) Classify(ctx context.Context, urls []string, role Role) ([]string, error) {
	return f(ctx, urls, role)
}

func TestClassifyInBatches(t *testing.T) {
	urls := []string{"a", "b", "c", "d", "e"}

	t.Run("按批次切分并去重", func(t *testing.T) {
		var batches [][]string
		c := classifierFunc(func(_ context.Context, in []string, _ Role) ([]string, error) {
			batches = append(batches, append([]string(nil), in...))
			return []string{in[0], "a"}, nil
		})

		got, err := ClassifyInBatches(context.Background(), c, urls, RoleProductPage, 2)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
		assert.Equal(t, []string{"a", "c", "e"}, got)
	})

	t.Run("空输入不调用分类器", func(t *testing.T) {
		c := classifierFunc(func(context.Context, []string, Role) ([]string, error) {
			t.Fatal("不应被调用")
			return nil, nil
		})
		got, err := ClassifyInBatches(context.Background(), c, nil, RoleGridPage, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("单批失败跳过", func(t *testing.T) {
		c := classifierFunc(func(_ context.Context, in []string, _ Role) ([]string, error) {
			if in[0] == "c" {
				return nil, errors.New("boom")
			}
			return in, nil
		})
		got, err := ClassifyInBatches(context.Background(), c, urls, RoleGridPage, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "e"}, got)
	})

	t.Run("全部失败返回错误", func(t *testing.T) {
		c := classifierFunc(func(context.Context, []string, Role) ([]string, error) {
			return nil, errors.New("down")
		})
		got, err := ClassifyInBatches(context.Background(), c, urls, RoleGridPage, 0)
		require.Error(t, err)
		assert.Empty(t, got)
	})

	t.Run("ctx取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := classifierFunc(func(context.Context, []string, Role) ([]string, error) {
			return []string{"a"}, nil
		})
		_, err := ClassifyInBatches(ctx, c, urls, RoleGridPage, 2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"启发式", Config{Provider: "heuristic"}, false},
		{"ollama默认地址", Config{Provider: "ollama", Model: "llama3.1"}, false},
		{"openai缺少密钥", Config{Provider: "openai", Model: "gpt-4o-mini"}, true},
		{"openai完整", Config{Provider: "OpenAI", Model: "gpt-4o-mini", APIKey: "sk-test"}, false},
		{"缺少模型", Config{Provider: "ollama"}, true},
		{"未知提供方", Config{Provider: "bard"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}

	c, err := New(Config{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", c.(*LLMClassifier).endpoint)
}

func TestLLMClassifier_Classify(t *testing.T) {
	input := []string{
		"https://shop.example/products/red-shoe",
		"https://shop.example/about",
		"https://shop.example/products/blue-shoe",
	}

	var got openai.ChatCompletionRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		content := `{"links": ["https://shop.example/products/red-shoe", "https://evil.example/x", "https://shop.example/products/blue-shoe"]}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer srv.Close()

	c := NewLLMClassifier(Config{BaseURL: srv.URL + "/v1/", Model: "llama3.1", APIKey: "sk-secret-0123456789"})
	links, err := c.Classify(context.Background(), input, RoleProductPage)
	require.NoError(t, err)

	assert.Equal(t, []string{input[0], input[2]}, links, "模型编造的链接应被丢弃")
	assert.Equal(t, "Bearer sk-secret-0123456789", auth)
	assert.Equal(t, "llama3.1", got.Model)
	assert.Zero(t, got.Temperature)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, systemPrompts[RoleProductPage], got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, input[1])
}

func TestLLMClassifier_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"服务端错误", http.StatusInternalServerError, "model not loaded", "500"},
		{"无choices", http.StatusOK, `{"choices": []}`, "choices"},
		{"内容非JSON", http.StatusOK, `{"choices": [{"message": {"content": "sure, here you go"}}]}`, "JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewLLMClassifier(Config{BaseURL: srv.URL, Model: "m"})
			_, err := c.Classify(context.Background(), []string{"https://a.example/p/1"}, RoleProductPage)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLLMClassifier_EmptyInputSkipsRequest(t *testing.T) {
	c := NewLLMClassifier(Config{BaseURL: "http://127.0.0.1:1", Model: "m"})
	links, err := c.Classify(context.Background(), nil, RoleGridPage)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestParseLinks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"标准格式", `{"links": ["a", "b"]}`, []string{"a", "b"}},
		{"代码块包裹", "```json\n{\"links\": [\"a\"]}\n```", []string{"a"}},
		{"旧字段名", `{"product_grid_links": ["g"], "product_links": ["p"]}`, []string{"p", "g"}},
		{"直接数组", `["x"]`, []string{"x"}},
		{"空内容", "  ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLinks(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicClassifier(t *testing.T) {
	urls := []string{
		"https://shop.example/",
		"https://shop.example/products/blue-shirt",
		"https://shop.example/collections/shirts",
		"https://shop.example/collections/shirts/products/red-shirt",
		"https://shop.example/c/shoes",
		"https://shop.example/list?cat=12",
		"https://shop.example/running-shoe-12345.html",
		"https://shop.example/cart",
		"https://shop.example/account/login",
		"https://shop.example/dp/B000123",
		"mailto:help@shop.example",
	}
	h := NewHeuristicClassifier()

	products, err := h.Classify(context.Background(), urls, RoleProductPage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://shop.example/products/blue-shirt",
		"https://shop.example/collections/shirts/products/red-shirt",
		"https://shop.example/running-shoe-12345.html",
		"https://shop.example/dp/B000123",
	}, products)

	grids, err := h.Classify(context.Background(), urls, RoleGridPage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://shop.example/collections/shirts",
		"https://shop.example/c/shoes",
		"https://shop.example/list?cat=12",
	}, grids)

	for _, u := range append(products, grids...) {
		assert.False(t, strings.Contains(u, "cart"))
	}
}
