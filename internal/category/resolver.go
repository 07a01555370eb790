package category

import "strings"

// Resolver maps raw sheet headers onto canonical categories using an
// ordered rule table. A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	rules  []Rule
	byName map[string]int
}

func NewResolver() *Resolver {
	return NewResolverWithRules(DefaultRules)
}

func NewResolverWithRules(rules []Rule) *Resolver {
	r := &Resolver{
		rules:  rules,
		byName: make(map[string]int, len(rules)*4),
	}
	for i, rule := range rules {
		r.index(string(rule.Category), i)
		for _, alias := range rule.Aliases {
			r.index(alias, i)
		}
	}
	return r
}

func (r *Resolver) index(name string, i int) {
	key := normalize(name)
	if _, taken := r.byName[key]; !taken {
		r.byName[key] = i
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Canonical maps a grading-scheme item name onto its canonical category.
func (r *Resolver) Canonical(name string) (Category, bool) {
	rule, ok := r.rule(name)
	if !ok {
		return "", false
	}
	return rule.Category, true
}

// KindOf reports how a scheme item is scored. Names outside the canonical
// set are scored from a single column.
func (r *Resolver) KindOf(name string) Kind {
	if rule, ok := r.rule(name); ok {
		return rule.Kind
	}
	return SingleValued
}

func (r *Resolver) rule(name string) (*Rule, bool) {
	i, ok := r.byName[normalize(name)]
	if !ok {
		return nil, false
	}
	return &r.rules[i], true
}

// Resolve classifies a single header: exact alias pass over every rule
// first, then pattern pass in table order.
func (r *Resolver) Resolve(header string) (Category, bool) {
	for i := range r.rules {
		if matchAlias(&r.rules[i], header) {
			return r.rules[i].Category, true
		}
	}
	for i := range r.rules {
		if matchPattern(&r.rules[i], header) {
			return r.rules[i].Category, true
		}
	}
	return "", false
}

// Columns returns the headers that feed the scheme item called name, in
// the order they should be tried. Only the item's own rule is consulted.
// For names outside the canonical set it falls back to an exact
// case-insensitive match, then substring containment in either direction.
//
// headers should be passed in a stable order (sorted) for a stable result.
func (r *Resolver) Columns(name string, headers []string) []string {
	rule, ok := r.rule(name)
	if !ok {
		return fallbackColumns(name, headers)
	}

	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, alias := range rule.Aliases {
		for _, h := range headers {
			if !seen[h] && normalize(h) == normalize(alias) && !excluded(rule, h) {
				out = append(out, h)
				seen[h] = true
			}
		}
	}
	for _, h := range headers {
		if !seen[h] && matchPattern(rule, h) {
			out = append(out, h)
			seen[h] = true
		}
	}
	return out
}

func fallbackColumns(name string, headers []string) []string {
	want := normalize(name)
	if want == "" {
		return nil
	}

	var exact []string
	for _, h := range headers {
		if normalize(h) == want {
			exact = append(exact, h)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	var partial []string
	for _, h := range headers {
		got := normalize(h)
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			partial = append(partial, h)
		}
	}
	return partial
}

// StudentNumberColumn finds the student number header.
func StudentNumberColumn(headers []string) (string, bool) {
	return identityColumn(&StudentNumberRule, headers)
}

// StudentNameColumn finds the student name header.
func StudentNameColumn(headers []string) (string, bool) {
	return identityColumn(&StudentNameRule, headers)
}

func identityColumn(rule *Rule, headers []string) (string, bool) {
	for _, alias := range rule.Aliases {
		for _, h := range headers {
			if normalize(h) == normalize(alias) {
				return h, true
			}
		}
	}
	for _, h := range headers {
		if matchPattern(rule, h) {
			return h, true
		}
	}
	return "", false
}

func matchAlias(rule *Rule, header string) bool {
	key := normalize(header)
	if key == "" || excluded(rule, header) {
		return false
	}
	if key == normalize(string(rule.Category)) {
		return true
	}
	for _, alias := range rule.Aliases {
		if key == normalize(alias) {
			return true
		}
	}
	return false
}

func matchPattern(rule *Rule, header string) bool {
	h := strings.TrimSpace(header)
	if h == "" || excluded(rule, h) {
		return false
	}
	for _, p := range rule.Patterns {
		if p.MatchString(h) {
			return true
		}
	}
	return false
}

func excluded(rule *Rule, header string) bool {
	h := strings.TrimSpace(header)
	for _, p := range rule.Exclude {
		if p.MatchString(h) {
			return true
		}
	}
	return false
}
