package cty

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user00265/ctyresolve/internal/dxcc"
)

func loadSample(t *testing.T) []Entry {
	t.Helper()
	f, err := os.Open("testdata/cty_sample.dat")
	require.NoError(t, err)
	defer f.Close()

	entries, err := Parse(f)
	require.NoError(t, err)
	return entries
}

func findEntry(t *testing.T, entries []Entry, key string, exact bool) Entry {
	t.Helper()
	for _, e := range entries {
		if e.Key == key && e.Exact == exact {
			return e
		}
	}
	t.Fatalf("entry %q (exact=%v) not found", key, exact)
	return Entry{}
}

func TestParse_Sample(t *testing.T) {
	entries := loadSample(t)

	exact := 0
	for _, e := range entries {
		if e.Exact {
			exact++
		}
	}
	assert.Equal(t, 4, exact)
	assert.Len(t, entries, 62)

	ve := findEntry(t, entries, "VE", false)
	assert.Equal(t, dxcc.Entity{
		Name: "Canada", Prefix: "VE", CQZone: 5, ITUZone: 9, Continent: "NA",
		Latitude: 44.35, Longitude: 78.75, TimeOffset: 5.0,
		WAEName: "Canada", WAEPrefix: "VE",
	}, ve.Entity)

	// Continuation lines belong to the same record.
	iz := findEntry(t, entries, "IZ", false)
	assert.Equal(t, "Italy", iz.Entity.Name)
}

func TestParse_Overrides(t *testing.T) {
	entries := loadSample(t)

	ve4 := findEntry(t, entries, "VE4", false).Entity
	assert.Equal(t, 4, ve4.CQZone)
	assert.Equal(t, 3, ve4.ITUZone)
	assert.Equal(t, "Canada", ve4.Name)

	im := findEntry(t, entries, "VE2IM", true).Entity
	assert.Equal(t, 2, im.CQZone)
	assert.Equal(t, 4, im.ITUZone)

	w6 := findEntry(t, entries, "W6", false).Entity
	assert.Equal(t, 3, w6.CQZone)
	assert.Equal(t, 6, w6.ITUZone)
	assert.Equal(t, 8.0, w6.TimeOffset)

	mm := findEntry(t, entries, "W1AW/MM", true).Entity
	assert.Equal(t, 40, mm.CQZone)
	assert.Equal(t, "AF", mm.Continent)
	assert.Equal(t, "United States", mm.Name)

	iw9 := findEntry(t, entries, "IW9", false).Entity
	assert.Equal(t, 37.5, iw9.Latitude)
	assert.Equal(t, -14.0, iw9.Longitude)
}

func TestParse_WAEEntity(t *testing.T) {
	entries := loadSample(t)

	it9 := findEntry(t, entries, "IT9", false).Entity
	assert.Equal(t, "Italy", it9.Name)
	assert.Equal(t, "I", it9.Prefix)
	assert.Equal(t, "Sicily", it9.WAEName)
	assert.Equal(t, "IT9", it9.WAEPrefix)
	assert.Equal(t, 37.5, it9.Latitude)

	// A WAE entity with no matching DXCC entity stands on its own.
	in := "Nowhere Isle: 1: 1: EU: 1.0: 1.0: 0.0: *QQ9:\n QQ9;"
	entries, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Nowhere Isle", entries[0].Entity.Name)
	assert.Equal(t, "QQ9", entries[0].Entity.Prefix)
	assert.Equal(t, "Nowhere Isle", entries[0].Entity.WAEName)
}

func TestParse_Latin1(t *testing.T) {
	in := "R\xe9union Island: 39: 53: AF: -21.12: -55.48: -4.0: FR/R:\n FR;"
	entries, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Réunion Island", entries[0].Entity.Name)
	assert.Equal(t, "FR/R", entries[0].Entity.Prefix)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"empty", "  \n", "no records"},
		{"bad cq zone", "Canada: 05: 09: NA: 44.35: 78.75: 5.0: VE:\n VE;\nBroken: xx: 09: NA: 1: 2: 3: B:\n B;", "line 3"},
		{"missing fields", "Canada: 05: 09: NA:\n VE;", "header fields"},
		{"bad override", "Canada: 05: 09: NA: 44.35: 78.75: 5.0: VE:\n VE(x);", "CQ zone override"},
		{"missing primary", "Canada: 05: 09: NA: 44.35: 78.75: 5.0: :\n VE;", "missing primary"},
		{"unterminated offset", "Canada: 05: 09: NA: 44.35: 78.75: 5.0: VE:\n VE~5.0;", "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildIndex(t *testing.T) {
	ix := BuildIndex(loadSample(t))

	exact, prefixes := ix.Len()
	assert.Equal(t, 4, exact)
	assert.Equal(t, 58, prefixes)

	e, ok := ix.ExactLookup("KG4AB")
	require.True(t, ok)
	assert.Equal(t, "Guantanamo Bay", e.Name)

	e, ok = ix.LongestPrefixLookup("IT9ABC")
	require.True(t, ok)
	assert.Equal(t, "Sicily", e.WAEName)

	// Later entries win on a repeated key.
	dup := []Entry{
		{Key: "XX", Entity: dxcc.Entity{Name: "First"}},
		{Key: "XX", Entity: dxcc.Entity{Name: "Second"}},
	}
	e, ok = BuildIndex(dup).PrefixEntity("XX")
	require.True(t, ok)
	assert.Equal(t, "Second", e.Name)
}
