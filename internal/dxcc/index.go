package dxcc

// Index is the read-only lookup structure built from the reference dataset.
// It has no mutating methods; construct it with an IndexBuilder. A nil *Index
// answers "not found" to every query.
type Index struct {
	exact    map[string]Entity
	prefixes map[string]Entity
}

// ExactLookup returns the entity bound to the full callsign s.
func (ix *Index) ExactLookup(s string) (Entity, bool) {
	if ix == nil || s == "" {
		return Unknown, false
	}
	e, ok := ix.exact[s]
	return e, ok
}

// IsValidPrefix reports whether s is a key of the prefix map. It is a pure
// membership test, not a longest-match search.
func (ix *Index) IsValidPrefix(s string) bool {
	_, ok := ix.PrefixEntity(s)
	return ok
}

// PrefixEntity returns the entity bound to exactly s in the prefix map.
func (ix *Index) PrefixEntity(s string) (Entity, bool) {
	if ix == nil || s == "" {
		return Unknown, false
	}
	e, ok := ix.prefixes[s]
	return e, ok
}

// LongestPrefixLookup probes s, then s minus its last byte, and so on, and
// returns the entity of the first (longest) probe found in the prefix map.
// It makes at most len(s) probes and does not allocate.
func (ix *Index) LongestPrefixLookup(s string) (Entity, bool) {
	if ix == nil {
		return Unknown, false
	}
	for i := len(s); i > 0; i-- {
		if e, ok := ix.prefixes[s[:i]]; ok {
			return e, true
		}
	}
	return Unknown, false
}

// Len returns the number of exact-match and prefix keys.
func (ix *Index) Len() (exact, prefixes int) {
	if ix == nil {
		return 0, 0
	}
	return len(ix.exact), len(ix.prefixes)
}

// IndexBuilder collects dataset records before an Index is published.
// Adding a key twice keeps the last entity (last-loaded wins). It is not safe
// for concurrent use.
type IndexBuilder struct {
	exact    map[string]Entity
	prefixes map[string]Entity
}

// NewIndexBuilder returns an empty builder.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{
		exact:    make(map[string]Entity),
		prefixes: make(map[string]Entity),
	}
}

// AddExact binds a complete callsign to e. Empty keys are ignored.
func (b *IndexBuilder) AddExact(call string, e Entity) {
	if call == "" {
		return
	}
	b.exact[call] = e
}

// AddPrefix binds a prefix to e. Empty keys are ignored.
func (b *IndexBuilder) AddPrefix(prefix string, e Entity) {
	if prefix == "" {
		return
	}
	b.prefixes[prefix] = e
}

// Build hands the collected maps to a new Index and resets the builder, so
// nothing written to the builder afterwards can reach the returned Index.
func (b *IndexBuilder) Build() *Index {
	ix := &Index{exact: b.exact, prefixes: b.prefixes}
	b.exact = make(map[string]Entity)
	b.prefixes = make(map[string]Entity)
	return ix
}
