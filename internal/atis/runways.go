// Package atis extracts active-runway assignments from ATIS broadcast
// text. ATIS phrasing is free-form; extraction is token-based over a
// normalised upper-case form of the message.
package atis

import (
	"regexp"
	"strings"
)

// Patterns for runway detection.
var (
	// A runway list: 27R, 09 AND 27L, 25L OR 25R
	runwayList = `((?:\d{1,2}[LCR]?)(?:\s*(?:,|AND|OR)\s*\d{1,2}[LCR]?)*)`

	// Landing assignments: LDG RWY 27R, ARR RWYS 25L AND 25R,
	// EXP ILS APCH RWY 08
	arrivalRe = regexp.MustCompile(`(?:LDG|LANDING|ARR(?:IVAL)?S?|APCH|APPROACH)[A-Z\s,]*?RWYS?\s+` + runwayList)

	// Departure assignments: DEP RWY 27L, TKOF RWYS 36L AND 36R
	departureRe = regexp.MustCompile(`(?:DEP(?:ARTURE)?S?|TKOF|TAKE\s?-?\s?OFF)[A-Z\s,]*?RWYS?\s+` + runwayList)

	// Both directions: RWY 14 IN USE, ACTIVE RWY 09
	inUseRe  = regexp.MustCompile(`RWYS?\s+` + runwayList + `\s+IN\s+USE`)
	activeRe = regexp.MustCompile(`ACTIVE\s+RWYS?\s+` + runwayList)

	identRe      = regexp.MustCompile(`\d{1,2}[LCR]?`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize prepares raw ATIS text for detection: upper-case, single
// line, collapsed whitespace, RUNWAY spelled as RWY.
func Normalize(text string) string {
	norm := strings.ToUpper(text)
	norm = strings.ReplaceAll(norm, "\n", " ")
	norm = strings.ReplaceAll(norm, "RUNWAYS", "RWYS")
	norm = strings.ReplaceAll(norm, "RUNWAY", "RWY")
	norm = whitespaceRe.ReplaceAllString(norm, " ")
	return strings.TrimSpace(norm)
}

// DetectArrivals returns runway idents named for landing in normalised
// ATIS text, zero-padded to match runway-table idents.
func DetectArrivals(norm string) []string {
	return collect(norm, arrivalRe, inUseRe, activeRe)
}

// DetectDepartures returns runway idents named for departure.
func DetectDepartures(norm string) []string {
	return collect(norm, departureRe, inUseRe, activeRe)
}

func collect(norm string, res ...*regexp.Regexp) []string {
	var idents []string
	seen := make(map[string]bool)
	for _, re := range res {
		for _, m := range re.FindAllStringSubmatch(norm, -1) {
			if len(m) < 2 {
				continue
			}
			for _, ident := range identRe.FindAllString(m[1], -1) {
				ident = pad(ident)
				if !seen[ident] {
					idents = append(idents, ident)
					seen[ident] = true
				}
			}
		}
	}
	return idents
}

// pad zero-pads single-digit idents: 9L becomes 09L.
func pad(ident string) string {
	if len(ident) == 1 || (len(ident) == 2 && ident[1] >= 'A') {
		return "0" + ident
	}
	return ident
}
