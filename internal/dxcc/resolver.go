package dxcc

import (
	"regexp"
	"strings"
)

// Default callsign shape patterns. Both can be replaced with WithCallPatterns.
const (
	// DefaultCallPattern matches the general shape of a callsign: a one to
	// three character prefix, a digit, and a suffix ending in a letter.
	DefaultCallPattern = `^[A-Z0-9]{1,3}[0-9][A-Z0-9]*[A-Z]$`
	// DefaultDomesticCallPattern matches US and Canadian calls.
	DefaultDomesticCallPattern = `^(A[A-L]|[KNW][A-Z]?|V[AEOY]|C[F-KYZ]|X[J-O])[0-9][A-Z]{1,3}$`
)

var (
	defaultCallRe         = regexp.MustCompile(DefaultCallPattern)
	defaultDomesticCallRe = regexp.MustCompile(DefaultDomesticCallPattern)
)

// Resolver maps raw callsigns to entities using an immutable Index. It holds
// no mutable state and is safe for concurrent use.
type Resolver struct {
	index        *Index
	special      []SpecialRule
	generalCall  *regexp.Regexp
	domesticCall *regexp.Regexp
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCallPatterns overrides the general and domestic callsign shapes used by
// the portable-call rules. A nil pattern keeps the default.
func WithCallPatterns(general, domestic *regexp.Regexp) Option {
	return func(r *Resolver) {
		if general != nil {
			r.generalCall = general
		}
		if domestic != nil {
			r.domesticCall = domestic
		}
	}
}

// WithSpecialRules appends rules after the built-in exceptions.
func WithSpecialRules(rules ...SpecialRule) Option {
	return func(r *Resolver) {
		r.special = append(r.special, rules...)
	}
}

// NewResolver returns a Resolver over ix.
func NewResolver(ix *Index, opts ...Option) *Resolver {
	r := &Resolver{
		index:        ix,
		special:      DefaultSpecialRules(),
		generalCall:  defaultCallRe,
		domesticCall: defaultDomesticCallRe,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index returns the index the resolver reads from.
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve determines the entity for a raw callsign. It is total: any input,
// including empty or malformed strings, produces a Result, and Unknown with
// an empty PortableID stands for every failure.
//
// Order matters: exact matches beat everything, special cases beat generic
// matching, and once a call is treated as portable it never falls back to
// plain prefix matching.
func (r *Resolver) Resolve(raw string) Result {
	call := Preprocess(raw)

	if e, ok := r.index.ExactLookup(call); ok {
		return Result{Entity: e}
	}

	if res, ok := applySpecialRules(r.special, r.index, call); ok {
		return res
	}

	if strings.Contains(call, "/") {
		return r.resolvePortable(call)
	}

	return r.resolveLongestPrefix(call)
}

func (r *Resolver) resolveLongestPrefix(call string) Result {
	if e, ok := r.index.LongestPrefixLookup(call); ok {
		return Result{Entity: e}
	}
	return unknownResult()
}
