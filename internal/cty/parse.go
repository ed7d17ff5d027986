package cty

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/user00265/ctyresolve/internal/dxcc"
)

// Entry is one key of the reference dataset: an exact callsign or a prefix,
// with per-key overrides already applied to its entity.
type Entry struct {
	Key    string
	Exact  bool
	Entity dxcc.Entity
}

// record is one entity block of a cty.dat file.
type record struct {
	entity   dxcc.Entity
	primary  string
	wae      bool
	prefixes []string
}

// headerFields is the number of colon-terminated fields that open a record:
// name, CQ zone, ITU zone, continent, latitude, longitude, UTC offset and
// primary prefix.
const headerFields = 8

// Parse reads a cty.dat style country file (AD1C format, including the WAE
// variants where the primary prefix of WAE-only entities starts with "*").
// Latitude, longitude and UTC offset keep the file's sign conventions
// (longitude and offset are positive to the west).
func Parse(r io.Reader) ([]Entry, error) {
	decoded, err := charset.NewReaderLabel("iso-8859-1", r)
	if err != nil {
		return nil, fmt.Errorf("failed to set up country file decoder: %w", err)
	}
	raw, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to read country file: %w", err)
	}

	var records []record
	line := 1
	for _, chunk := range strings.Split(string(raw), ";") {
		lead := len(chunk) - len(strings.TrimLeft(chunk, " \t\r\n"))
		start := line + strings.Count(chunk[:lead], "\n")
		line += strings.Count(chunk, "\n")

		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		rec, err := parseRecord(chunk)
		if err != nil {
			return nil, fmt.Errorf("country file line %d: %w", start, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("country file contains no records")
	}

	parents := dxccParents(records)

	var entries []Entry
	for _, rec := range records {
		base := rec.entity
		if rec.wae {
			base = waeEntity(rec, parents)
		}
		for _, token := range rec.prefixes {
			entry, err := parsePrefix(token, base)
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", rec.entity.Name, err)
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// BuildIndex publishes entries as a read-only index. Later entries win when
// a key repeats.
func BuildIndex(entries []Entry) *dxcc.Index {
	b := dxcc.NewIndexBuilder()
	for _, e := range entries {
		if e.Exact {
			b.AddExact(e.Key, e.Entity)
		} else {
			b.AddPrefix(e.Key, e.Entity)
		}
	}
	return b.Build()
}

func parseRecord(chunk string) (record, error) {
	parts := strings.SplitN(chunk, ":", headerFields+1)
	if len(parts) != headerFields+1 {
		return record{}, fmt.Errorf("expected %d header fields, found %d", headerFields, len(parts)-1)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	name := parts[0]
	cqz, err := strconv.Atoi(parts[1])
	if err != nil {
		return record{}, fmt.Errorf("%s: invalid CQ zone %q", name, parts[1])
	}
	ituz, err := strconv.Atoi(parts[2])
	if err != nil {
		return record{}, fmt.Errorf("%s: invalid ITU zone %q", name, parts[2])
	}
	lat, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return record{}, fmt.Errorf("%s: invalid latitude %q", name, parts[4])
	}
	lng, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return record{}, fmt.Errorf("%s: invalid longitude %q", name, parts[5])
	}
	tz, err := strconv.ParseFloat(parts[6], 64)
	if err != nil {
		return record{}, fmt.Errorf("%s: invalid UTC offset %q", name, parts[6])
	}

	primary := parts[7]
	wae := strings.HasPrefix(primary, "*")
	primary = strings.TrimPrefix(primary, "*")
	if primary == "" {
		return record{}, fmt.Errorf("%s: missing primary prefix", name)
	}

	rec := record{
		entity: dxcc.Entity{
			Name:       name,
			Prefix:     primary,
			CQZone:     cqz,
			ITUZone:    ituz,
			Continent:  parts[3],
			Latitude:   lat,
			Longitude:  lng,
			TimeOffset: tz,
			WAEName:    name,
			WAEPrefix:  primary,
		},
		primary: primary,
		wae:     wae,
	}
	for _, token := range strings.Split(parts[8], ",") {
		if token = strings.TrimSpace(token); token != "" {
			rec.prefixes = append(rec.prefixes, token)
		}
	}
	return rec, nil
}

// dxccParents indexes the prefixes of full DXCC entities so WAE-only
// entities can find the DXCC entity they belong to.
func dxccParents(records []record) *dxcc.Index {
	b := dxcc.NewIndexBuilder()
	for _, rec := range records {
		if rec.wae {
			continue
		}
		b.AddPrefix(rec.primary, rec.entity)
		for _, token := range rec.prefixes {
			if strings.HasPrefix(token, "=") {
				continue
			}
			b.AddPrefix(prefixKey(token), rec.entity)
		}
	}
	return b.Build()
}

// waeEntity keeps the WAE record's own location data and takes the DXCC
// name and prefix from the parent entity, e.g. "*IT9" Sicily under Italy.
func waeEntity(rec record, parents *dxcc.Index) dxcc.Entity {
	e := rec.entity
	e.WAEName = rec.entity.Name
	e.WAEPrefix = rec.primary

	base, _, _ := strings.Cut(rec.primary, "/")
	if parent, ok := parents.LongestPrefixLookup(strings.ToUpper(base)); ok {
		e.Name = parent.Name
		e.Prefix = parent.Prefix
	}
	return e
}

// prefixKey returns the key part of a prefix token, before any override.
func prefixKey(token string) string {
	token = strings.TrimPrefix(token, "=")
	if idx := strings.IndexAny(token, "([<{~"); idx != -1 {
		return token[:idx]
	}
	return token
}

// parsePrefix parses one prefix-list token such as "K6(3)[6]" or
// "=KL7AA<60.0/150.0>{NA}~9.0~" and applies its overrides to base.
func parsePrefix(token string, base dxcc.Entity) (Entry, error) {
	entry := Entry{
		Key:    prefixKey(token),
		Exact:  strings.HasPrefix(token, "="),
		Entity: base,
	}
	if entry.Key == "" {
		return Entry{}, fmt.Errorf("empty prefix in token %q", token)
	}

	if v, ok := between(token, '(', ')'); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Entry{}, fmt.Errorf("%s: invalid CQ zone override %q", entry.Key, v)
		}
		entry.Entity.CQZone = n
	}
	if v, ok := between(token, '[', ']'); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Entry{}, fmt.Errorf("%s: invalid ITU zone override %q", entry.Key, v)
		}
		entry.Entity.ITUZone = n
	}
	if v, ok := between(token, '<', '>'); ok {
		latStr, lngStr, found := strings.Cut(v, "/")
		if !found {
			return Entry{}, fmt.Errorf("%s: invalid location override %q", entry.Key, v)
		}
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 != nil || err2 != nil {
			return Entry{}, fmt.Errorf("%s: invalid location override %q", entry.Key, v)
		}
		entry.Entity.Latitude = lat
		entry.Entity.Longitude = lng
	}
	if v, ok := between(token, '{', '}'); ok {
		entry.Entity.Continent = v
	}
	if start := strings.IndexByte(token, '~'); start != -1 {
		end := strings.IndexByte(token[start+1:], '~')
		if end == -1 {
			return Entry{}, fmt.Errorf("%s: unterminated UTC offset override", entry.Key)
		}
		v := token[start+1 : start+1+end]
		tz, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%s: invalid UTC offset override %q", entry.Key, v)
		}
		entry.Entity.TimeOffset = tz
	}
	return entry, nil
}

func between(s string, left, right byte) (string, bool) {
	start := strings.IndexByte(s, left)
	if start == -1 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], right)
	if end == -1 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
