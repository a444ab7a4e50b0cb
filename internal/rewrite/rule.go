// Package rewrite renames attributes inside nested DynamoDB items.
//
// A rename directive has the form "<before>><after>". Plain directives are
// anchored at the item root; directives whose sides both start with '*'
// match any nesting level whose path ends with the directive's prefix.
package rewrite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMissingArrow is returned when a directive has no '>' separator
	ErrMissingArrow = errors.New("replacement missing arrow ('>')")

	// ErrInvalidAttribute is returned when a side of a directive is not a valid attribute path
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrUnsupported is returned for directives that would move a value between
	// nesting levels, or that mix wildcard and plain sides
	ErrUnsupported = errors.New("replacements that move values are not yet supported")
)

// InvalidAttributeError names the fragment that failed attribute validation
type InvalidAttributeError struct {
	Attribute string
}

// Error implements the error interface
func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("attribute '%s' is invalid", e.Attribute)
}

// Unwrap allows errors.Is(err, ErrInvalidAttribute)
func (e *InvalidAttributeError) Unwrap() error {
	return ErrInvalidAttribute
}

// attributeName is deliberately unanchored; validateAttribute checks that the
// match spans the whole input.
var attributeName = regexp.MustCompile(`[a-zA-Z0-9_\-.]+`)

// Replace renames From to To in every map whose path matches Prefix.
type Replace struct {
	// Root rules require the path to equal Prefix. Non-root rules only
	// require the path to end with Prefix.
	Root   bool
	Prefix string
	From   string
	To     string
}

// String renders the rule back into directive form
func (r Replace) String() string {
	before, after := r.From, r.To
	if r.Prefix != "" {
		before = r.Prefix + "." + r.From
		after = r.Prefix + "." + r.To
	}
	if !r.Root {
		return "*" + before + ">*" + after
	}
	return before + ">" + after
}

// Matches reports whether the rule fires for a map at the given path.
// Suffix rules use a plain string suffix test, so prefix "b.c" also matches
// the path "xb.c".
func (r Replace) Matches(path string) bool {
	if path == r.Prefix {
		return true
	}
	return !r.Root && strings.HasSuffix(path, r.Prefix)
}

// ParseReplace parses a single rename directive
func ParseReplace(s string) (Replace, error) {
	before, after, ok := strings.Cut(s, ">")
	if !ok {
		return Replace{}, ErrMissingArrow
	}

	root := true
	if strings.HasPrefix(before, "*") {
		before = before[1:]
		if !strings.HasPrefix(after, "*") {
			return Replace{}, ErrUnsupported
		}
		after = after[1:]
		root = false
	} else if strings.HasPrefix(after, "*") {
		return Replace{}, ErrUnsupported
	}

	if err := validateAttribute(before); err != nil {
		return Replace{}, err
	}
	if err := validateAttribute(after); err != nil {
		return Replace{}, err
	}

	r := Replace{Root: root}
	if i := strings.LastIndex(before, "."); i >= 0 {
		r.Prefix = before[:i]
		r.From = before[i+1:]
		to, ok := strings.CutPrefix(after, r.Prefix+".")
		if !ok {
			return Replace{}, ErrUnsupported
		}
		r.To = to
	} else {
		if strings.Contains(after, ".") {
			return Replace{}, ErrUnsupported
		}
		r.From = before
		r.To = after
	}

	// the names left after splitting off the prefix must be valid on their own
	if err := validateAttribute(r.From); err != nil {
		return Replace{}, err
	}
	if err := validateAttribute(r.To); err != nil {
		return Replace{}, err
	}

	return r, nil
}

// ParseReplaces parses every directive, stopping at the first failure
func ParseReplaces(directives []string) ([]Replace, error) {
	rules := make([]Replace, 0, len(directives))
	for _, d := range directives {
		r, err := ParseReplace(d)
		if err != nil {
			return nil, fmt.Errorf("invalid replacement %q: %w", d, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func validateAttribute(name string) error {
	loc := attributeName.FindStringIndex(name)
	if loc == nil || loc[0] != 0 || loc[1] != len(name) {
		return &InvalidAttributeError{Attribute: name}
	}
	return nil
}
