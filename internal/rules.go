package internal

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

type Classification int

const (
	Unmapped Classification = iota
	Ignored
	Mapped
)

func (c Classification) String() string {
	switch c {
	case Ignored:
		return "ignored"
	case Mapped:
		return "mapped"
	default:
		return "unmapped"
	}
}

// RuleSpec is the uncompiled form of a DirRule as it appears in config.
type RuleSpec struct {
	Source      string
	Destination string
}

// DirRule maps paths matching Pattern under Destination.
type DirRule struct {
	Source      string
	Pattern     *regexp.Regexp
	Destination string
}

// Map rewrites p onto the rule's destination root. The literal Source text
// must be a leading path of p; a match obtained only through regex syntax
// cannot be rewritten and fails with ErrPathStripMismatch.
func (r DirRule) Map(p string) (string, error) {
	prefix := strings.TrimSuffix(r.Source, "/")
	clean := path.Clean(p)

	var rest string
	switch {
	case prefix == "":
		rest = clean
	case clean == prefix:
		rest = ""
	case strings.HasPrefix(clean, prefix+"/"):
		rest = strings.TrimPrefix(clean, prefix+"/")
	default:
		return "", fmt.Errorf("%w: rule %q, path %q", ErrPathStripMismatch, r.Source, p)
	}

	return path.Join(r.Destination, rest), nil
}

// Match is the outcome of classifying one path.
type Match struct {
	Class Classification
	// Index is the position of the winning ignore pattern or rule, -1 for none.
	Index int
	Rule  *DirRule
}

// RuleSet holds ordered ignore patterns and dir rules. Order is kept exactly
// as configured: the first match wins.
type RuleSet struct {
	ignored    []*regexp.Regexp
	rules      []DirRule
	ignoreFile *IgnoreMatcher
}

func NewRuleSet(ignored []string, rules []RuleSpec) (*RuleSet, error) {
	rs := &RuleSet{
		ignored: make([]*regexp.Regexp, 0, len(ignored)),
		rules:   make([]DirRule, 0, len(rules)),
	}

	for _, expr := range ignored {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: ignored pattern %q: %v", ErrConfigInvalid, expr, err)
		}
		rs.ignored = append(rs.ignored, re)
	}

	for i, spec := range rules {
		if spec.Source == "" || spec.Destination == "" {
			return nil, fmt.Errorf("%w: dir_map entry %d needs a source and a destination", ErrConfigInvalid, i+1)
		}
		re, err := regexp.Compile(spec.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: dir_map pattern %q: %v", ErrConfigInvalid, spec.Source, err)
		}
		rs.rules = append(rs.rules, DirRule{Source: spec.Source, Pattern: re, Destination: spec.Destination})
	}

	return rs, nil
}

// WithIgnoreFile returns a copy that also ignores paths matched by m.
func (rs *RuleSet) WithIgnoreFile(m *IgnoreMatcher) *RuleSet {
	cp := *rs
	cp.ignoreFile = m
	return &cp
}

func (rs *RuleSet) Rules() []DirRule {
	out := make([]DirRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func (rs *RuleSet) Classify(p string) Match {
	for i, re := range rs.ignored {
		if re.MatchString(p) {
			return Match{Class: Ignored, Index: i}
		}
	}

	if rs.ignoreFile != nil && rs.ignoreFile.Match(p) {
		return Match{Class: Ignored, Index: len(rs.ignored)}
	}

	for i := range rs.rules {
		if rs.rules[i].Pattern.MatchString(p) {
			return Match{Class: Mapped, Index: i, Rule: &rs.rules[i]}
		}
	}

	return Match{Class: Unmapped, Index: -1}
}
