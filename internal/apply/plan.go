package apply

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/conduit-lang/dynarename/internal/rewrite"
	"github.com/conduit-lang/dynarename/internal/tracking"
)

// Plan is the outcome of rewriting a scanned table in memory
type Plan struct {
	Scanned int
	Result  rewrite.Result
	Changes []tracking.Change
	// Unmatched lists rules whose source attribute name appears nowhere in the table
	Unmatched []rewrite.Replace
	// Attributes is every attribute name seen at any map level, sorted
	Attributes []string
}

// Empty reports whether the plan has no replacements
func (p *Plan) Empty() bool {
	return p.Result.Replacements == 0
}

// NewPlan rewrites items against rules without touching the table
func NewPlan(items []rewrite.Item, rules []rewrite.Replace) *Plan {
	set, res := tracking.Build(items, rules)

	seen := make(map[string]bool)
	for _, item := range items {
		collectNames(item, seen)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	var unmatched []rewrite.Replace
	for _, r := range rules {
		if !seen[r.From] {
			unmatched = append(unmatched, r)
		}
	}

	return &Plan{
		Scanned:    len(items),
		Result:     res,
		Changes:    set.Changes(),
		Unmatched:  unmatched,
		Attributes: names,
	}
}

func collectNames(item rewrite.Item, seen map[string]bool) {
	for k, v := range item {
		seen[k] = true
		if nested, ok := v.(*types.AttributeValueMemberM); ok {
			collectNames(nested.Value, seen)
		}
	}
}
