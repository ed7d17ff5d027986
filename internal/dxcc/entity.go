package dxcc

// Entity is a resolved DXCC entity as bound to a prefix or exact call in the
// reference dataset. Values are copied, never shared by pointer, so callers
// cannot modify what the Index holds.
type Entity struct {
	Name       string  `json:"entity"`
	Prefix     string  `json:"prefix"`
	CQZone     int     `json:"cqz"`
	ITUZone    int     `json:"ituz"`
	Continent  string  `json:"cont"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lng"`
	TimeOffset float64 `json:"tz"`
	WAEName    string  `json:"wae_entity"`
	WAEPrefix  string  `json:"wae_prefix"`
}

// Unknown is returned whenever a callsign cannot be resolved.
var Unknown = Entity{}

// IsUnknown reports whether e is the Unknown sentinel.
func (e Entity) IsUnknown() bool {
	return e == Unknown
}

// Result is the outcome of resolving one callsign. PortableID is only set
// for compound calls and holds the side of the "/" that picked the location.
type Result struct {
	Entity
	PortableID string `json:"portableid"`
}

func unknownResult() Result {
	return Result{Entity: Unknown}
}
