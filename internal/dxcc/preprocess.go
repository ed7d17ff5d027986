package dxcc

import "strings"

// strippedSuffixes are operating-condition markers that say nothing about
// location and are removed before matching. /MM is not among them.
var strippedSuffixes = []string{"/QRP", "/P", "/M", "/B"}

// Preprocess turns a raw callsign into the base string used for matching.
// Everything from the first "-" is dropped (skimmer and POTA style markers
// such as "-#" or "-5"), then trailing /P, /M, /QRP and /B suffixes are
// removed until none remain. Case is left alone.
func Preprocess(raw string) string {
	call := raw
	if idx := strings.IndexByte(call, '-'); idx != -1 {
		call = call[:idx]
	}

	for {
		trimmed := false
		for _, suffix := range strippedSuffixes {
			if strings.HasSuffix(call, suffix) {
				call = call[:len(call)-len(suffix)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			return call
		}
	}
}
