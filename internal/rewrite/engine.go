package rewrite

import (
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a single DynamoDB record
type Item = map[string]types.AttributeValue

// Result accumulates counts across one or more rewritten items
type Result struct {
	Replacements int
	Overwrites   int
}

// Add folds another result into r
func (r *Result) Add(other Result) {
	r.Replacements += other.Replacements
	r.Overwrites += other.Overwrites
}

// Rewrite applies rules to a copy of item and returns the copy with the
// counts for this item. The input is left untouched.
func Rewrite(item Item, rules []Replace) (Item, Result) {
	out := Clone(item)
	var res Result
	Apply(out, rules, &res)
	return out, res
}

// Apply rewrites item in place. Rules are evaluated in order at each map,
// before descending into that map's nested maps. A rule never reads a key
// that an earlier rule wrote at the same level, so chained renames such as
// a>b, b>c take one run per link.
func Apply(item Item, rules []Replace, res *Result) {
	apply("", item, rules, res)
}

func apply(path string, m Item, rules []Replace, res *Result) {
	// keys written by an earlier rule at this level are not sources for later rules
	var inserted map[string]bool
	for _, rule := range rules {
		if !rule.Matches(path) || inserted[rule.From] {
			continue
		}
		value, ok := m[rule.From]
		if !ok {
			continue
		}
		delete(m, rule.From)
		res.Replacements++
		if _, exists := m[rule.To]; exists {
			res.Overwrites++
		}
		m[rule.To] = value
		if inserted == nil {
			inserted = make(map[string]bool)
		}
		inserted[rule.To] = true
	}

	for key, value := range m {
		nested, ok := value.(*types.AttributeValueMemberM)
		if !ok {
			continue
		}
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}
		apply(childPath, nested.Value, rules, res)
	}
}

// Clone deep-copies an item. Maps and lists are copied recursively; scalar
// members are copied by value.
func Clone(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v types.AttributeValue) types.AttributeValue {
	switch tv := v.(type) {
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: Clone(tv.Value)}
	case *types.AttributeValueMemberL:
		if tv.Value == nil {
			return &types.AttributeValueMemberL{}
		}
		list := make([]types.AttributeValue, len(tv.Value))
		for i, e := range tv.Value {
			list[i] = cloneValue(e)
		}
		return &types.AttributeValueMemberL{Value: list}
	case *types.AttributeValueMemberS:
		c := *tv
		return &c
	case *types.AttributeValueMemberN:
		c := *tv
		return &c
	case *types.AttributeValueMemberBOOL:
		c := *tv
		return &c
	case *types.AttributeValueMemberNULL:
		c := *tv
		return &c
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: slices.Clone(tv.Value)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: slices.Clone(tv.Value)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: slices.Clone(tv.Value)}
	case *types.AttributeValueMemberBS:
		if tv.Value == nil {
			return &types.AttributeValueMemberBS{}
		}
		bs := make([][]byte, len(tv.Value))
		for i, b := range tv.Value {
			bs[i] = slices.Clone(b)
		}
		return &types.AttributeValueMemberBS{Value: bs}
	default:
		return v
	}
}
