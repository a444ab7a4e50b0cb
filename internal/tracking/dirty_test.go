package tracking

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dynarename/internal/rewrite"
)

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func rules(t *testing.T, directives ...string) []rewrite.Replace {
	t.Helper()
	r, err := rewrite.ParseReplaces(directives)
	require.NoError(t, err)
	return r
}

func TestDirtySet_Add(t *testing.T) {
	set := NewDirtySet()

	assert.False(t, set.Add(rewrite.Item{"a": str("1")}, rewrite.Item{"a": str("1")}))
	assert.True(t, set.Add(rewrite.Item{"a": str("1")}, rewrite.Item{"b": str("1")}))
	assert.Len(t, set.Changes(), 1)
}

func TestBuild(t *testing.T) {
	items := []rewrite.Item{
		{"id": str("1"), "a": str("x")},
		{"id": str("2"), "other": str("y")},
		{"id": str("3"), "a": str("z"), "b": str("old")},
	}

	set, res := Build(items, rules(t, "a>b"))

	assert.Equal(t, rewrite.Result{Replacements: 2, Overwrites: 1}, res)
	require.Len(t, set.Changes(), 2)

	changes := set.Changes()
	// scan order is kept and originals are the unmodified items
	assert.Equal(t, items[0], changes[0].Original)
	assert.Equal(t, rewrite.Item{"id": str("1"), "b": str("x")}, changes[0].Mutated)
	assert.Equal(t, items[2], changes[1].Original)
	assert.Equal(t, rewrite.Item{"id": str("3"), "b": str("z")}, changes[1].Mutated)

	assert.Contains(t, items[0], "a")
}

func TestBuild_NoMatches(t *testing.T) {
	items := []rewrite.Item{{"id": str("1")}}

	set, res := Build(items, rules(t, "missing>other"))

	assert.Len(t, set.Changes(), 0)
	assert.Equal(t, rewrite.Result{}, res)
}

func TestChange_ChangedFields(t *testing.T) {
	c := Change{
		Original: rewrite.Item{"id": str("1"), "a": str("x"), "b": str("old")},
		Mutated:  rewrite.Item{"id": str("1"), "b": str("x")},
	}

	fields := c.ChangedFields()
	require.Len(t, fields, 2)

	assert.Equal(t, "a", fields[0].Field)
	assert.Equal(t, str("x"), fields[0].OldValue)
	assert.Nil(t, fields[0].NewValue)

	assert.Equal(t, "b", fields[1].Field)
	assert.Equal(t, str("old"), fields[1].OldValue)
	assert.Equal(t, str("x"), fields[1].NewValue)
}
