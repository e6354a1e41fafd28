package pepdes

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/duyjimmypham/pepdesign/internal/chem"
)

// Rule is a single named filter rule: a min/max range over a numeric
// property, or a boolean exclusion. Nil bounds are open.
type Rule struct {
	Min     *float64 `mapstructure:"min"`
	Max     *float64 `mapstructure:"max"`
	Exclude bool     `mapstructure:"exclude"`
}

// Filter applies a set of named rules to a property set. Rules are
// evaluated in a fixed (sorted) order so diagnostics are deterministic.
type Filter struct {
	rules map[string]Rule
	order []string
}

// NewFilter builds a Filter from named rules. Every rule must reference
// a known property; range bounds are rejected on boolean properties and
// exclusions on numeric ones. A violation here is a configuration
// error, not a per-record failure.
func NewFilter(rules map[string]Rule) (*Filter, error) {
	order := make([]string, 0, len(rules))
	for name, rule := range rules {
		if !chem.KnownProperty(name) {
			return nil, errors.Errorf("filter rule %q references an unknown property", name)
		}
		if chem.BoolProperty(name) && (rule.Min != nil || rule.Max != nil) {
			return nil, errors.Errorf("filter rule %q: %s is boolean, use exclude instead of min/max", name, name)
		}
		if !chem.BoolProperty(name) && rule.Exclude {
			return nil, errors.Errorf("filter rule %q: exclude only applies to boolean properties", name)
		}
		order = append(order, name)
	}
	sort.Strings(order)

	return &Filter{rules: rules, order: order}, nil
}

// Evaluate applies every enabled rule to props independently (no
// short-circuit) and returns whether all rules passed plus the names of
// the violated rules. A NaN property value violates any range rule that
// names it: a bound that cannot be verified is reported, not skipped.
func (f *Filter) Evaluate(props chem.Properties) (pass bool, violated []string) {
	for _, name := range f.order {
		rule := f.rules[name]
		value, _ := props.ByName(name)

		switch {
		case rule.Exclude:
			if value != 0 {
				violated = append(violated, name)
			}
		case math.IsNaN(value) && (rule.Min != nil || rule.Max != nil):
			violated = append(violated, name)
		case rule.Min != nil && value < *rule.Min:
			violated = append(violated, name)
		case rule.Max != nil && value > *rule.Max:
			violated = append(violated, name)
		}
	}

	return len(violated) == 0, violated
}

// Len returns the number of enabled rules.
func (f *Filter) Len() int {
	return len(f.order)
}
