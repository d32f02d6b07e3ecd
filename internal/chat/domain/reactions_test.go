package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactionsToggleIsInvolution(t *testing.T) {
	cases := []Reactions{
		nil,
		{},
		{"👍": {"bob"}},
		{"👍": {"alice", "bob"}, "🎉": {"carol"}},
		{"🎉": {"alice"}},
	}

	for _, r := range cases {
		twice := r.Toggle("👍", "alice").Toggle("👍", "alice")
		assert.Equal(t, nonNil(NormalizeReactions(r)), nonNil(twice), "%v", r)
	}
}

func nonNil(r Reactions) Reactions {
	if len(r) == 0 {
		return Reactions{}
	}
	return r
}

func TestReactionsToggle(t *testing.T) {
	r := Reactions{"👍": {"bob"}}

	added := r.Toggle("👍", "alice")
	assert.Equal(t, Reactions{"👍": {"alice", "bob"}}, added)
	assert.Equal(t, Reactions{"👍": {"bob"}}, r, "input untouched")

	removed := Reactions{"👍": {"alice"}}.Toggle("👍", "alice")
	assert.NotNil(t, removed)
	assert.Empty(t, removed)
}

func TestNormalizeReactions(t *testing.T) {
	assert.Nil(t, NormalizeReactions(nil))
	assert.Equal(t, Reactions{"👍": {"a", "b"}}, NormalizeReactions(map[string][]string{
		"👍": {"b", "a", "b", ""},
		"🎉": {},
	}))
}

func TestReactionsHas(t *testing.T) {
	r := Reactions{"👍": {"alice"}}
	assert.True(t, r.Has("👍", "alice"))
	assert.False(t, r.Has("👍", "bob"))
	assert.False(t, Reactions(nil).Has("👍", "alice"))
}
