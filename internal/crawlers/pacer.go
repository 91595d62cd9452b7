package crawlers

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer 决定两轮滚动之间的停顿
type Pacer interface {
	// Pause 阻塞一个随机时长并返回实际时长
	Pause() time.Duration
}

// JitterPacer 在 [Min, Max] 内均匀随机停顿, 每次独立采样
type JitterPacer struct {
	Min time.Duration
	Max time.Duration

	// Sleep 可替换, 测试中避免真实等待
	Sleep func(time.Duration)

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitterPacer 创建抖动停顿器
func NewJitterPacer(min, max time.Duration) *JitterPacer {
	if max < min {
		min, max = max, min
	}
	return &JitterPacer{
		Min:   min,
		Max:   max,
		Sleep: time.Sleep,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Next 采样下一次停顿时长
func (p *JitterPacer) Next() time.Duration {
	span := p.Max - p.Min
	if span <= 0 {
		return p.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Min + time.Duration(p.rng.Int64N(int64(span)+1))
}

// Pause 实现 Pacer
func (p *JitterPacer) Pause() time.Duration {
	d := p.Next()
	if p.Sleep != nil {
		p.Sleep(d)
	}
	return d
}
