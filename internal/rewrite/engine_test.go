package rewrite

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }
func m(v Item) types.AttributeValue   { return &types.AttributeValueMemberM{Value: v} }

func mustRules(t *testing.T, directives ...string) []Replace {
	t.Helper()
	rules, err := ParseReplaces(directives)
	require.NoError(t, err)
	return rules
}

func TestRewrite_SimpleRename(t *testing.T) {
	item := Item{"id": s("1"), "a": n("1")}

	got, res := Rewrite(item, mustRules(t, "a>b"))

	assert.Equal(t, Item{"id": s("1"), "b": n("1")}, got)
	assert.Equal(t, Result{Replacements: 1}, res)
	// input untouched
	assert.Contains(t, item, "a")
}

func TestRewrite_OverwriteCounting(t *testing.T) {
	item := Item{"a": n("1"), "b": n("2")}

	got, res := Rewrite(item, mustRules(t, "a>b"))

	assert.Equal(t, Item{"b": n("1")}, got)
	assert.Equal(t, 1, res.Replacements)
	assert.Equal(t, 1, res.Overwrites)
}

func TestRewrite_NoMatchIsNoop(t *testing.T) {
	item := Item{"id": s("1"), "nested": m(Item{"x": s("y")})}

	got, res := Rewrite(item, mustRules(t, "missing>other", "*gone>*here"))

	assert.Equal(t, item, got)
	assert.Equal(t, Result{}, res)
}

func TestRewrite_RootRuleOnlyAtTop(t *testing.T) {
	item := Item{
		"a":      s("top"),
		"nested": m(Item{"a": s("inner")}),
	}

	got, res := Rewrite(item, mustRules(t, "a>b"))

	assert.Equal(t, Item{
		"b":      s("top"),
		"nested": m(Item{"a": s("inner")}),
	}, got)
	assert.Equal(t, 1, res.Replacements)
}

func TestRewrite_RootRuleWithPrefix(t *testing.T) {
	item := Item{
		"user": m(Item{"name": s("ann")}),
		"other": m(Item{
			"user": m(Item{"name": s("bob")}),
		}),
	}

	got, res := Rewrite(item, mustRules(t, "user.name>user.full_name"))

	assert.Equal(t, Item{
		"user": m(Item{"full_name": s("ann")}),
		"other": m(Item{
			"user": m(Item{"name": s("bob")}),
		}),
	}, got)
	assert.Equal(t, 1, res.Replacements)
}

func TestRewrite_SuffixRuleAtAnyDepth(t *testing.T) {
	item := Item{
		"user": m(Item{"name": m(Item{"first": s("a")})}),
		"a": m(Item{
			"user": m(Item{"name": m(Item{"first": s("b")})}),
		}),
		"xuser": m(Item{"name": m(Item{"first": s("c")})}),
		"users": m(Item{"name": m(Item{"first": s("d")})}),
	}

	got, res := Rewrite(item, mustRules(t, "*user.name.first>*user.name.given"))

	// "xuser.name" ends with "user.name" as a raw string and is rewritten too;
	// "users.name" does not end with it.
	assert.Equal(t, Item{
		"user": m(Item{"name": m(Item{"given": s("a")})}),
		"a": m(Item{
			"user": m(Item{"name": m(Item{"given": s("b")})}),
		}),
		"xuser": m(Item{"name": m(Item{"given": s("c")})}),
		"users": m(Item{"name": m(Item{"first": s("d")})}),
	}, got)
	assert.Equal(t, 3, res.Replacements)
}

func TestRewrite_SuffixRuleEmptyPrefixEverywhere(t *testing.T) {
	item := Item{
		"old": s("1"),
		"a":   m(Item{"old": s("2"), "b": m(Item{"old": s("3")})}),
	}

	got, res := Rewrite(item, mustRules(t, "*old>*new"))

	assert.Equal(t, Item{
		"new": s("1"),
		"a":   m(Item{"new": s("2"), "b": m(Item{"new": s("3")})}),
	}, got)
	assert.Equal(t, 3, res.Replacements)
}

func TestRewrite_ChainedRulesOneLinkPerPass(t *testing.T) {
	item := Item{"a": n("1")}
	rules := mustRules(t, "a>b", "b>c")

	// b was written by a>b in this pass, so b>c does not pick it up
	got, res := Rewrite(item, rules)
	assert.Equal(t, Item{"b": n("1")}, got)
	assert.Equal(t, 1, res.Replacements)

	// a second pass applies the next link of the chain
	got, res = Rewrite(got, rules)
	assert.Equal(t, Item{"c": n("1")}, got)
	assert.Equal(t, 1, res.Replacements)

	got, res = Rewrite(got, rules)
	assert.Equal(t, Item{"c": n("1")}, got)
	assert.Equal(t, 0, res.Replacements)
}

func TestRewrite_RulesInListOrder(t *testing.T) {
	item := Item{"a": n("1"), "b": n("2")}

	// b>c runs before a>b writes b, so the original b moves to c
	got, res := Rewrite(item, mustRules(t, "b>c", "a>b"))
	assert.Equal(t, Item{"b": n("1"), "c": n("2")}, got)
	assert.Equal(t, Result{Replacements: 2}, res)

	// with a>b first the original b is clobbered and the new b stays put
	got, res = Rewrite(item, mustRules(t, "a>b", "b>c"))
	assert.Equal(t, Item{"b": n("1")}, got)
	assert.Equal(t, Result{Replacements: 1, Overwrites: 1}, res)
}

func TestRewrite_OverwriteOfRelocatedField(t *testing.T) {
	item := Item{"a": n("1"), "b": n("2")}

	got, res := Rewrite(item, mustRules(t, "a>c", "b>c"))

	assert.Equal(t, Item{"c": n("2")}, got)
	assert.Equal(t, Result{Replacements: 2, Overwrites: 1}, res)
}

func TestRewrite_RemovedFieldUnavailableToLaterRules(t *testing.T) {
	item := Item{"a": n("1")}

	got, res := Rewrite(item, mustRules(t, "a>b", "a>c"))

	assert.Equal(t, Item{"b": n("1")}, got)
	assert.Equal(t, 1, res.Replacements)
}

func TestRewrite_Idempotent(t *testing.T) {
	item := Item{
		"a":    n("1"),
		"meta": m(Item{"x": s("y"), "deep": m(Item{"x": s("z")})}),
	}
	rules := mustRules(t, "a>b", "*x>*w")

	once, _ := Rewrite(item, rules)
	twice, res := Rewrite(once, rules)

	assert.Equal(t, once, twice)
	assert.Equal(t, Result{}, res)
}

func TestRewrite_SameNameIsNotOverwrite(t *testing.T) {
	item := Item{"a": n("1")}

	got, res := Rewrite(item, mustRules(t, "a>a"))

	assert.Equal(t, item, got)
	assert.Equal(t, Result{Replacements: 1}, res)
}

func TestRewrite_ListsAreLeaves(t *testing.T) {
	item := Item{
		"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			m(Item{"a": s("inside list")}),
		}},
	}

	got, res := Rewrite(item, mustRules(t, "*a>*b"))

	assert.Equal(t, item, got)
	assert.Equal(t, 0, res.Replacements)
}

func TestRewrite_RenamedMapIsStillVisited(t *testing.T) {
	item := Item{"old": m(Item{"a": s("1")})}

	got, res := Rewrite(item, mustRules(t, "old>new", "new.a>new.b"))

	// the nested map is visited under its new key
	assert.Equal(t, Item{"new": m(Item{"b": s("1")})}, got)
	assert.Equal(t, 2, res.Replacements)
}

func TestResult_Add(t *testing.T) {
	var total Result
	total.Add(Result{Replacements: 2, Overwrites: 1})
	total.Add(Result{Replacements: 3})
	assert.Equal(t, Result{Replacements: 5, Overwrites: 1}, total)
}

func TestClone(t *testing.T) {
	item := Item{
		"s":    s("v"),
		"b":    &types.AttributeValueMemberB{Value: []byte{}},
		"ss":   &types.AttributeValueMemberSS{Value: []string{"x"}},
		"bool": &types.AttributeValueMemberBOOL{Value: true},
		"null": &types.AttributeValueMemberNULL{Value: true},
		"m":    m(Item{"k": n("1")}),
		"l":    &types.AttributeValueMemberL{Value: []types.AttributeValue{s("e")}},
	}

	c := Clone(item)
	require.Equal(t, item, c)

	c["m"].(*types.AttributeValueMemberM).Value["k"] = n("2")
	assert.Equal(t, n("1"), item["m"].(*types.AttributeValueMemberM).Value["k"])

	assert.Nil(t, Clone(nil))
}
