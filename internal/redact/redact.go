// Package redact masks sensitive values in text before it leaves the
// process. A filter is an ordered pipeline of pattern-substitution rules;
// within one application, repeated occurrences of the same raw value receive
// the same numbered label, while independent applications start counting
// from scratch so labels cannot be correlated across payloads.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule pairs a pattern with a label template. A "#" in the template is
// replaced by a per-rule counter; a template without "#" substitutes
// literally.
type Rule struct {
	Pattern *regexp.Regexp
	Label   string
}

// Filter is an ordered list of rules. Construct with Compile; a Filter is
// immutable and safe for concurrent use, since all per-run state lives in
// Apply.
type Filter struct {
	rules []Rule
}

// Compile builds a Filter from (pattern, label) pairs, rejecting invalid
// patterns. Rule order is preserved: each rule rewrites the output of the
// previous one.
func Compile(pairs [][2]string) (*Filter, error) {
	rules := make([]Rule, 0, len(pairs))
	for i, p := range pairs {
		re, err := regexp.Compile(p[0])
		if err != nil {
			return nil, fmt.Errorf("redaction rule %d: invalid pattern %q: %w", i+1, p[0], err)
		}
		rules = append(rules, Rule{Pattern: re, Label: p[1]})
	}
	return &Filter{rules: rules}, nil
}

// MustCompile is Compile for static rule sets; it panics on a bad pattern.
func MustCompile(pairs [][2]string) *Filter {
	f, err := Compile(pairs)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rules in the pipeline.
func (f *Filter) Len() int { return len(f.rules) }

// Apply runs the pipeline over text. Counters are created fresh per call and
// scoped per rule: the first distinct match of a rule gets 1, the second
// distinct match 2, and an already-seen value reuses its number.
func (f *Filter) Apply(text string) string {
	for _, rule := range f.rules {
		seen := make(map[string]int)
		next := 1
		text = rule.Pattern.ReplaceAllStringFunc(text, func(match string) string {
			n, ok := seen[match]
			if !ok {
				n = next
				next++
				seen[match] = n
			}
			if !strings.Contains(rule.Label, "#") {
				return rule.Label
			}
			return strings.ReplaceAll(rule.Label, "#", fmt.Sprintf("%d", n))
		})
	}
	return text
}

// DefaultRules masks the obvious secrets in outbound notebook content:
// IPv4 addresses, bearer tokens, and values assigned to key-like variables.
func DefaultRules() [][2]string {
	return [][2]string{
		{`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "IP_#"},
		{`(?i)bearer\s+[A-Za-z0-9._\-]+`, "BEARER_TOKEN_#"},
		{`(?i)(api[_-]?key|secret|token|password)\s*[=:]\s*['"][^'"]+['"]`, "SECRET_#"},
	}
}
