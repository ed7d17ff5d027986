package dxcc

import (
	"regexp"
	"strings"
)

// SpecialRule is a hardcoded exception checked after exact matching and
// before any generic prefix logic. Entity reports false when the dataset
// cannot supply the rule's target, in which case evaluation moves on.
type SpecialRule struct {
	Name    string
	Applies func(call string) bool
	Entity  func(ix *Index) (Entity, bool)
}

var (
	// KG4 with a two letter suffix is the US Navy allocation at Guantanamo Bay.
	guantanamoCall = regexp.MustCompile(`^KG4([A-Z]{2})?$`)
	// Any other KG4 suffix length is a regular US call.
	kg4MainlandCall = regexp.MustCompile(`^KG4([A-Z0-9]|[A-Z0-9]{3})$`)
)

// DefaultSpecialRules returns the built-in exceptions in evaluation order.
func DefaultSpecialRules() []SpecialRule {
	return []SpecialRule{
		{
			Name: "maritime-mobile",
			Applies: func(call string) bool {
				return strings.HasSuffix(call, "/MM")
			},
			Entity: func(*Index) (Entity, bool) {
				return Unknown, true
			},
		},
		{
			Name:    "guantanamo-bay",
			Applies: guantanamoCall.MatchString,
			Entity: func(ix *Index) (Entity, bool) {
				return ix.PrefixEntity("KG4")
			},
		},
		{
			Name:    "kg4-mainland",
			Applies: kg4MainlandCall.MatchString,
			Entity: func(ix *Index) (Entity, bool) {
				return ix.PrefixEntity("K")
			},
		},
	}
}

// applySpecialRules runs rules in order and returns the first that fires.
func applySpecialRules(rules []SpecialRule, ix *Index, call string) (Result, bool) {
	for _, rule := range rules {
		if !rule.Applies(call) {
			continue
		}
		if e, ok := rule.Entity(ix); ok {
			return Result{Entity: e}, true
		}
	}
	return Result{}, false
}
