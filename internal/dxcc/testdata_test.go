package dxcc

import "testing"

var (
	usa = Entity{Name: "United States", Prefix: "K", CQZone: 5, ITUZone: 8, Continent: "NA",
		Latitude: 37.53, Longitude: 91.67, TimeOffset: 5, WAEName: "United States", WAEPrefix: "K"}
	usaWest = Entity{Name: "United States", Prefix: "K", CQZone: 3, ITUZone: 6, Continent: "NA",
		Latitude: 37.53, Longitude: 91.67, TimeOffset: 5, WAEName: "United States", WAEPrefix: "K"}
	guantanamo = Entity{Name: "Guantanamo Bay", Prefix: "KG4", CQZone: 8, ITUZone: 11, Continent: "NA",
		Latitude: 20, Longitude: 75, TimeOffset: 5, WAEName: "Guantanamo Bay", WAEPrefix: "KG4"}
	canada = Entity{Name: "Canada", Prefix: "VE", CQZone: 5, ITUZone: 9, Continent: "NA",
		Latitude: 44.35, Longitude: 78.75, TimeOffset: 5, WAEName: "Canada", WAEPrefix: "VE"}
	canadaMB = Entity{Name: "Canada", Prefix: "VE", CQZone: 4, ITUZone: 3, Continent: "NA",
		Latitude: 44.35, Longitude: 78.75, TimeOffset: 5, WAEName: "Canada", WAEPrefix: "VE"}
	bvi = Entity{Name: "British Virgin Islands", Prefix: "VP2V", CQZone: 8, ITUZone: 11, Continent: "NA",
		Latitude: 18.33, Longitude: 64.75, TimeOffset: 4, WAEName: "British Virgin Islands", WAEPrefix: "VP2V"}
	germany = Entity{Name: "Fed. Rep. of Germany", Prefix: "DL", CQZone: 14, ITUZone: 28, Continent: "EU",
		Latitude: 51, Longitude: -10, TimeOffset: -1, WAEName: "Fed. Rep. of Germany", WAEPrefix: "DL"}
	czech = Entity{Name: "Czech Republic", Prefix: "OK", CQZone: 15, ITUZone: 28, Continent: "EU",
		Latitude: 50, Longitude: -16, TimeOffset: -1, WAEName: "Czech Republic", WAEPrefix: "OK"}
	puertoRico = Entity{Name: "Puerto Rico", Prefix: "KP4", CQZone: 8, ITUZone: 11, Continent: "NA",
		Latitude: 18.18, Longitude: 66.55, TimeOffset: 4, WAEName: "Puerto Rico", WAEPrefix: "KP4"}
	fiji = Entity{Name: "Fiji", Prefix: "3D2", CQZone: 32, ITUZone: 56, Continent: "OC",
		Latitude: -17.78, Longitude: -177.92, TimeOffset: -12, WAEName: "Fiji", WAEPrefix: "3D2"}
	exactOnly = Entity{Name: "Exact Test Entity", Prefix: "XX", CQZone: 1, ITUZone: 1, Continent: "AN"}
)

// newTestIndex returns a small index shaped like the relevant parts of cty.dat.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	b := NewIndexBuilder()
	for _, p := range []string{"K", "W", "N", "AA"} {
		b.AddPrefix(p, usa)
	}
	for _, p := range []string{"K6", "W6", "N6"} {
		b.AddPrefix(p, usaWest)
	}
	b.AddPrefix("KG4", guantanamo)
	b.AddPrefix("KP4", puertoRico)
	b.AddPrefix("3D2", fiji)
	b.AddPrefix("VE", canada)
	b.AddPrefix("VA", canada)
	b.AddPrefix("VE4", canadaMB)
	b.AddPrefix("VP2V", bvi)
	b.AddPrefix("DL", germany)
	b.AddPrefix("OK", czech)
	b.AddPrefix("OL", czech)

	b.AddExact("KG4AB", exactOnly)
	b.AddExact("W1AW/MM", exactOnly)
	b.AddExact("VP2V/K1ABC", exactOnly)
	return b.Build()
}
