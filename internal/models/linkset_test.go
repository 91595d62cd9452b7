package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSet_AddAndMerge(t *testing.T) {
	s := NewLinkSet("https://a.example/1", "https://a.example/1", "")
	assert.Equal(t, 1, s.Len(), "重复与空值不应计入")

	assert.False(t, s.Add("https://a.example/1"))
	assert.True(t, s.Add("https://a.example/2"))

	added := s.Merge(NewLinkSet("https://a.example/2", "https://a.example/3"))
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("https://a.example/3"))
}

func TestLinkSet_MergeIsMonotonic(t *testing.T) {
	s := NewLinkSet()
	passes := [][]string{
		{"https://a.example/1"},
		{"https://a.example/1", "https://a.example/2"},
		{"https://a.example/1", "https://a.example/2"},
		{"https://a.example/1", "https://a.example/2", "https://a.example/3"},
	}

	prev := 0
	for _, pass := range passes {
		s.Merge(NewLinkSet(pass...))
		require.GreaterOrEqual(t, s.Len(), prev)
		prev = s.Len()
	}
	assert.Equal(t, 3, s.Len())
}

func TestLinkSet_JSONIsSorted(t *testing.T) {
	s := NewLinkSet("https://b.example", "https://a.example")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["https://a.example","https://b.example"]`, string(data))

	var back LinkSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Sorted(), back.Sorted())
}

func TestCliIdentities_Normalize(t *testing.T) {
	got := CliIdentities{"ua-1", "", "ua-2", "ua-1"}.Normalize()
	assert.Equal(t, []string{"ua-1", "ua-2"}, got)
}
