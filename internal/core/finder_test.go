package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/RecoveryAshes/ProductFinder/internal/classifier"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrapeCall 记录一次采集调用
type scrapeCall struct {
	url    string
	limits models.HarvestLimits
}

// fakeSource 按URL返回预设的链接
type fakeSource struct {
	pages map[string][]string

	mu    sync.Mutex
	calls []scrapeCall
}

func (f *fakeSource) Scrape(url string, limits models.HarvestLimits) models.LinkSet {
	f.mu.Lock()
	f.calls = append(f.calls, scrapeCall{url: url, limits: limits})
	f.mu.Unlock()
	return models.NewLinkSet(f.pages[url]...)
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, []string, classifier.Role) ([]string, error) {
	return nil, errors.New("llm unavailable")
}

func testConfig() *Config {
	return &Config{
		Harvest:    models.DefaultHarvestConfig(),
		Classifier: classifier.DefaultConfig(),
		Pipeline: PipelineConfig{
			Concurrency:     2,
			MaxCandidates:   20,
			MaxGridPages:    3,
			MaxProducts:     20,
			SameSite:        true,
			ContinueOnError: true,
		},
	}
}

func shopPages() map[string][]string {
	return map[string][]string{
		"https://shop.example": {
			"https://shop.example/",
			"https://shop.example/about",
			"https://shop.example/collections/hats",
			"https://shop.example/collections/shoes",
			"https://other.example/collections/x",
			"mailto:help@shop.example",
		},
		"https://shop.example/collections/hats": {
			"https://shop.example/products/cap",
			"https://shop.example/collections/hats?page=2",
		},
		"https://shop.example/collections/shoes": {
			"https://shop.example/products/boot",
			"https://shop.example/products/cap",
			"https://other.example/products/fake",
		},
	}
}

func TestFinder_Find(t *testing.T) {
	cfg := testConfig()
	cfg.Harvest.GridMaxScrolls = 4
	src := &fakeSource{pages: shopPages()}
	f := NewFinder(src, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://shop.example")

	assert.Equal(t, models.TaskStatusCompleted, res.Status)
	assert.Equal(t, 6, res.LandingLinks)
	assert.Equal(t, 3, res.Candidates, "站点自身、外站和非http链接应被过滤")
	assert.Equal(t, []string{
		"https://shop.example/collections/hats",
		"https://shop.example/collections/shoes",
	}, res.GridPages)
	assert.Equal(t, 4, res.GridLinks)
	assert.Equal(t, []string{
		"https://shop.example/products/boot",
		"https://shop.example/products/cap",
	}, res.Products)

	require.Len(t, src.calls, 3)
	assert.Equal(t, "max_scrolls=10 max_links=unlimited", src.calls[0].limits.String())
	assert.Equal(t, "max_scrolls=4 max_links=unlimited", src.calls[1].limits.String())
}

func TestFinder_Caps(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.MaxGridPages = 1
	cfg.Pipeline.MaxProducts = 1
	src := &fakeSource{pages: shopPages()}
	f := NewFinder(src, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://shop.example")

	assert.Equal(t, []string{"https://shop.example/collections/hats"}, res.GridPages)
	assert.Equal(t, []string{"https://shop.example/products/cap"}, res.Products)
	assert.Len(t, src.calls, 2)
}

func TestFinder_CandidateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.MaxCandidates = 2
	f := NewFinder(&fakeSource{pages: shopPages()}, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://shop.example")

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, []string{"https://shop.example/collections/hats"}, res.GridPages)
}

func TestFinder_CrossSite(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SameSite = false
	f := NewFinder(&fakeSource{pages: shopPages()}, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://shop.example")

	assert.Equal(t, 4, res.Candidates)
	assert.Contains(t, res.GridPages, "https://other.example/collections/x")
	assert.Contains(t, res.Products, "https://other.example/products/fake")
}

func TestFinder_EmptyLanding(t *testing.T) {
	cfg := testConfig()
	f := NewFinder(&fakeSource{}, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://down.example")

	assert.Equal(t, models.TaskStatusFailed, res.Status)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.Empty(t, res.Products)
}

func TestFinder_ClassifierErrorIsEmptyResult(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{pages: shopPages()}
	f := NewFinder(src, failingClassifier{}, cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(context.Background(), "https://shop.example")

	assert.Equal(t, models.TaskStatusCompleted, res.Status)
	assert.Empty(t, res.GridPages)
	assert.Empty(t, res.Products)
	assert.Len(t, src.calls, 1, "没有列表页时不应再次采集")
}

func TestFinder_Cancelled(t *testing.T) {
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFinder(&fakeSource{pages: shopPages()}, classifier.NewHeuristicClassifier(), cfg.Harvest, cfg.Pipeline, 10)

	res := f.Find(ctx, "https://shop.example")

	assert.Equal(t, models.TaskStatusCancelled, res.Status)
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.shop.co.uk/x", "shop.co.uk"},
		{"https://Shop.Example.com", "example.com"},
		{"http://127.0.0.1:8080/a", "127.0.0.1"},
		{"http://localhost:3000", "localhost"},
		{"::bad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, registrableDomain(tt.url))
		})
	}
}

func TestSameDocument(t *testing.T) {
	assert.True(t, sameDocument("https://a.example/", "https://a.example"))
	assert.True(t, sameDocument("https://a.example/#top", "https://a.example"))
	assert.False(t, sameDocument("https://a.example/p", "https://a.example"))
}
