package models

import (
	"encoding/json"
	"sort"
)

// LinkSet 绝对URL集合, 按字符串精确去重
type LinkSet map[string]struct{}

// NewLinkSet 创建集合
func NewLinkSet(urls ...string) LinkSet {
	s := make(LinkSet, len(urls))
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add 加入一个URL, 返回是否为新成员
func (s LinkSet) Add(u string) bool {
	if u == "" {
		return false
	}
	if _, ok := s[u]; ok {
		return false
	}
	s[u] = struct{}{}
	return true
}

// Merge 合并另一个集合, 返回新增数量
func (s LinkSet) Merge(other LinkSet) int {
	added := 0
	for u := range other {
		if s.Add(u) {
			added++
		}
	}
	return added
}

// Len 集合大小
func (s LinkSet) Len() int {
	return len(s)
}

// Contains 是否包含
func (s LinkSet) Contains(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted 排序后的切片, 用于稳定输出
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON 序列化为有序数组
func (s LinkSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON 从数组反序列化
func (s *LinkSet) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	*s = NewLinkSet(urls...)
	return nil
}
