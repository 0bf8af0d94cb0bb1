package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcaptain/internal/domain"
)

func teacher(id, name string) *domain.Teacher {
	return &domain.Teacher{Meta: domain.Meta{ID: id}, Name: name}
}

func names(ts []*domain.Teacher) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

func TestCollection_AppendKeepsOrder(t *testing.T) {
	c := New[*domain.Teacher]()
	require.NoError(t, c.Append(teacher("3", "c")))
	require.NoError(t, c.Append(teacher("1", "a")))
	require.NoError(t, c.Append(teacher("2", "b")))

	assert.Equal(t, []string{"c", "a", "b"}, names(c.All()))
	assert.Equal(t, 3, c.Len())
}

func TestCollection_AppendRejects(t *testing.T) {
	c := New[*domain.Teacher]()
	require.NoError(t, c.Append(teacher("1", "a")))
	assert.ErrorIs(t, c.Append(teacher("1", "dup")), ErrDuplicateID)
	assert.Error(t, c.Append(teacher("", "no id")))
	assert.Equal(t, []string{"a"}, names(c.All()))
}

func TestCollection_RemoveByID(t *testing.T) {
	c := New[*domain.Teacher]()
	for _, tc := range []*domain.Teacher{teacher("1", "a"), teacher("2", "b"), teacher("3", "c")} {
		require.NoError(t, c.Append(tc))
	}

	removed, ok := c.RemoveByID("2")
	require.True(t, ok)
	assert.Equal(t, "b", removed.Name)
	assert.Equal(t, []string{"a", "c"}, names(c.All()))
	assert.False(t, c.Has("2"))

	_, ok = c.RemoveByID("2")
	assert.False(t, ok)

	require.NoError(t, c.Append(teacher("2", "b again")), "removed ids may be reused")
	assert.Equal(t, []string{"a", "c", "b again"}, names(c.All()))
}

func TestCollection_AllIsACopy(t *testing.T) {
	c := New[*domain.Teacher]()
	require.NoError(t, c.Append(teacher("1", "a")))
	all := c.All()
	all[0] = teacher("x", "x")

	got, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, 1, c.Len())
}

func TestCollection_Replace(t *testing.T) {
	c := New[*domain.Teacher]()
	require.NoError(t, c.Append(teacher("old", "old")))

	c.Replace([]*domain.Teacher{teacher("1", "a"), teacher("1", "dup"), teacher("", "blank"), teacher("2", "b")})
	assert.Equal(t, []string{"a", "b"}, names(c.All()))
	assert.False(t, c.Has("old"))
}
