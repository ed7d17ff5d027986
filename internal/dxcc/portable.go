package dxcc

import "strings"

// portableRule is one step of the compound-call decision procedure. Rules are
// tried in order; the first one that reports true decides the result.
type portableRule struct {
	name  string
	apply func(r *Resolver, left, right string) (Result, bool)
}

// portableRules must stay in this order. Each rule assumes every earlier one
// declined.
var portableRules = []portableRule{
	{name: "digit-call-rejection", apply: rejectDigitCall},
	{name: "unambiguous-prefix", apply: unambiguousPrefix},
	{name: "strip-digit", apply: stripDigitTieBreak},
	{name: "us-canada-digit", apply: domesticDigitSuffix},
	{name: "ends-in-digit", apply: endsInDigitTieBreak},
	{name: "give-up", apply: giveUp},
}

// resolvePortable handles any cleaned call containing "/". It never falls
// back to plain prefix matching of the whole string.
func (r *Resolver) resolvePortable(call string) Result {
	left, right, ok := strings.Cut(call, "/")
	if !ok || strings.Contains(right, "/") {
		return unknownResult()
	}
	for _, rule := range portableRules {
		if res, ok := rule.apply(r, left, right); ok {
			return res
		}
	}
	return unknownResult()
}

// rejectDigitCall: "7/KD4D" is not a valid combination.
func rejectDigitCall(r *Resolver, left, right string) (Result, bool) {
	if isAllDigits(left) && r.generalCall.MatchString(right) {
		return unknownResult(), true
	}
	return Result{}, false
}

func unambiguousPrefix(r *Resolver, left, right string) (Result, bool) {
	leftOK := r.index.IsValidPrefix(left)
	rightOK := r.index.IsValidPrefix(right)
	switch {
	case leftOK && !rightOK:
		return r.boundPrefix(left, left), true
	case rightOK && !leftOK:
		return r.boundPrefix(right, right), true
	}
	return Result{}, false
}

// stripDigitTieBreak retries the prefix test with one trailing digit removed
// from each side. The unstripped side is reported as the portableid. The
// other side must stay invalid both before and after stripping.
func stripDigitTieBreak(r *Resolver, left, right string) (Result, bool) {
	strippedLeft := trimTrailingDigit(left)
	strippedRight := trimTrailingDigit(right)
	leftOK := r.index.IsValidPrefix(strippedLeft)
	rightOK := r.index.IsValidPrefix(strippedRight)
	switch {
	case leftOK && !rightOK && !r.index.IsValidPrefix(right):
		return r.boundPrefix(left, strippedLeft), true
	case rightOK && !leftOK && !r.index.IsValidPrefix(left):
		return r.boundPrefix(right, strippedRight), true
	}
	return Result{}, false
}

// domesticDigitSuffix handles "K1ABC/4" style call-area changes. The digit is
// the portableid. The call's home country comes from left, and the area is
// looked up as that country's prefix + digit so per-district zone overrides
// apply. A district bound to another country never wins: "KG1ABC/4" stays in
// the United States even though KG4 is Guantanamo Bay.
func domesticDigitSuffix(r *Resolver, left, right string) (Result, bool) {
	if len(right) != 1 || !isDigit(right[0]) || !r.domesticCall.MatchString(left) {
		return Result{}, false
	}
	home := r.homeEntity(left)
	if home.IsUnknown() {
		return unknownResult(), true
	}
	if e, ok := r.index.LongestPrefixLookup(home.Prefix + right); ok && sameCountry(e, home) {
		return Result{Entity: e, PortableID: right}, true
	}
	return Result{Entity: home, PortableID: right}, true
}

// homeEntity resolves a plain call the way Resolve would, without the
// portable rules.
func (r *Resolver) homeEntity(call string) Entity {
	if e, ok := r.index.ExactLookup(call); ok {
		return e
	}
	if res, ok := applySpecialRules(r.special, r.index, call); ok {
		return res.Entity
	}
	return r.resolveLongestPrefix(call).Entity
}

func sameCountry(a, b Entity) bool {
	return a.Name == b.Name && a.Prefix == b.Prefix
}

func endsInDigitTieBreak(r *Resolver, left, right string) (Result, bool) {
	leftDigit := endsInDigit(left)
	rightDigit := endsInDigit(right)
	if leftDigit == rightDigit {
		return Result{}, false
	}
	side := left
	if rightDigit {
		side = right
	}
	if e, ok := r.index.LongestPrefixLookup(side); ok {
		return Result{Entity: e, PortableID: side}, true
	}
	return unknownResult(), true
}

func giveUp(*Resolver, string, string) (Result, bool) {
	return unknownResult(), true
}

// boundPrefix builds a result for portableid using the entity bound to key.
func (r *Resolver) boundPrefix(portableID, key string) Result {
	e, ok := r.index.PrefixEntity(key)
	if !ok {
		return unknownResult()
	}
	return Result{Entity: e, PortableID: portableID}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func endsInDigit(s string) bool {
	return s != "" && isDigit(s[len(s)-1])
}

func trimTrailingDigit(s string) string {
	if endsInDigit(s) {
		return s[:len(s)-1]
	}
	return s
}
