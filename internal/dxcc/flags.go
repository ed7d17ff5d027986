package dxcc

// countryCodes maps DXCC primary prefixes (as written in cty.dat) to ISO
// 3166-1 alpha-2 codes. Entities without a national flag are left out.
var countryCodes = map[string]string{
	// North America
	"VE":   "CA", // Canada
	"K":    "US", // United States
	"KG4":  "US", // Guantanamo Bay
	"KL":   "US", // Alaska
	"KH6":  "US", // Hawaii
	"XE":   "MX", // Mexico
	"CM":   "CU", // Cuba
	"KP4":  "PR", // Puerto Rico
	"VP2V": "VG", // British Virgin Islands

	// South America
	"LU": "AR", // Argentina
	"PY": "BR", // Brazil
	"CX": "UY", // Uruguay
	"CE": "CL", // Chile
	"HK": "CO", // Colombia
	"OA": "PE", // Peru
	"YV": "VE", // Venezuela
	"HC": "EC", // Ecuador
	"8R": "GY", // Guyana
	"ZP": "PY", // Paraguay
	"FY": "GF", // French Guiana

	// Europe
	"PA":  "NL", // Netherlands
	"OE":  "AT", // Austria
	"ON":  "BE", // Belgium
	"OK":  "CZ", // Czech Republic
	"OZ":  "DK", // Denmark
	"OH":  "FI", // Finland
	"OH0": "AX", // Aland Islands
	"F":   "FR", // France
	"DL":  "DE", // Germany
	"SV":  "GR", // Greece
	"HA":  "HU", // Hungary
	"TF":  "IS", // Iceland
	"EI":  "IE", // Ireland
	"I":   "IT", // Italy
	"3A":  "MC", // Monaco
	"LA":  "NO", // Norway
	"SP":  "PL", // Poland
	"CT":  "PT", // Portugal
	"UA":  "RU", // European Russia
	"UA9": "RU", // Asiatic Russia
	"EA":  "ES", // Spain
	"SM":  "SE", // Sweden
	"HB":  "CH", // Switzerland
	"UR":  "UA", // Ukraine
	"G":   "GB", // England
	"LZ":  "BG", // Bulgaria
	"YO":  "RO", // Romania
	"S5":  "SI", // Slovenia
	"9A":  "HR", // Croatia
	"OM":  "SK", // Slovak Republic

	// Asia
	"JA":  "JP", // Japan
	"BY":  "CN", // China
	"HL":  "KR", // Republic of Korea
	"VU":  "IN", // India
	"HS":  "TH", // Thailand
	"3W":  "VN", // Vietnam
	"YB":  "ID", // Indonesia
	"DU":  "PH", // Philippines
	"9V":  "SG", // Singapore
	"9M2": "MY", // West Malaysia
	"BV":  "TW", // Taiwan
	"VR":  "HK", // Hong Kong
	"TA":  "TR", // Asiatic Turkey
	"4X":  "IL", // Israel

	// Oceania
	"VK":  "AU", // Australia
	"ZL":  "NZ", // New Zealand
	"3D2": "FJ", // Fiji
	"P2":  "PG", // Papua New Guinea
	"YJ":  "VU", // Vanuatu
	"FK":  "NC", // New Caledonia
	"FO":  "PF", // French Polynesia

	// Africa
	"ZS":  "ZA", // South Africa
	"SU":  "EG", // Egypt
	"5Z":  "KE", // Kenya
	"5N":  "NG", // Nigeria
	"CN":  "MA", // Morocco
	"3V":  "TN", // Tunisia
	"5R":  "MG", // Madagascar
	"FR":  "RE", // Reunion
	"3B8": "MU", // Mauritius
}

// Flag returns the emoji flag for a DXCC primary prefix, or "" when the
// entity has none.
func Flag(prefix string) string {
	code, ok := countryCodes[prefix]
	if !ok || len(code) != 2 {
		return ""
	}
	// Regional indicator symbols start at U+1F1E6 for 'A'.
	const base = 0x1F1E6
	return string([]rune{rune(base + int(code[0]-'A')), rune(base + int(code[1]-'A'))})
}
