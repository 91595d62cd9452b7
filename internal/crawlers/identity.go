package crawlers

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// DefaultUserAgents 内置身份池, 覆盖常见的浏览器/系统/设备组合
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36 Edg/91.0.864.59",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Linux; Android 11; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Mobile/15E148 Safari/604.1",
}

// ErrEmptyIdentityPool 身份池为空
var ErrEmptyIdentityPool = errors.New("身份池为空")

// IdentityPool 只读的 User-Agent 池, 可在并发采集间共享
// 选择方式为均匀随机、有放回
type IdentityPool struct {
	agents []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewIdentityPool 创建身份池, rng 为 nil 时使用随机种子
func NewIdentityPool(agents []string, rng *rand.Rand) (*IdentityPool, error) {
	if len(agents) == 0 {
		return nil, ErrEmptyIdentityPool
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &IdentityPool{
		agents: append([]string(nil), agents...),
		rng:    rng,
	}, nil
}

// DefaultIdentityPool 使用内置列表的身份池
func DefaultIdentityPool() *IdentityPool {
	pool, _ := NewIdentityPool(DefaultUserAgents, nil)
	return pool
}

// Pick 随机选择一个身份
func (p *IdentityPool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rng.IntN(len(p.agents))]
}

// Size 身份数量
func (p *IdentityPool) Size() int {
	return len(p.agents)
}

// All 返回身份列表副本
func (p *IdentityPool) All() []string {
	return append([]string(nil), p.agents...)
}
