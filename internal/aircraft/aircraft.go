// Package aircraft holds the static ICAO aircraft-type table. The
// table is compiled into the binary and built into a lookup map once;
// after that it is read-only and safe for concurrent use.
package aircraft

import (
	"bufio"
	"bytes"
	_ "embed"
	"strconv"
	"strings"
	"sync"
)

//go:embed data.tsv
var rawTable []byte

// Aircraft is one row of the type table.
type Aircraft struct {
	Designator       string `json:"designator"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	WTC              string `json:"wtc"`
	WTG              string `json:"wtg"`
	ManufacturerCode string `json:"manufacturer_code"`
	AircraftType     string `json:"aircraft_type"`
	EngineCount      int    `json:"engine_count"`
	EngineType       string `json:"engine_type"`
}

var (
	buildOnce sync.Once
	db        map[string]*Aircraft
)

// pickBest resolves designator collisions. The table occasionally has
// several manufacturers sharing a designator; the first row wins.
func pickBest(options []*Aircraft) *Aircraft {
	return options[0]
}

func build() {
	grouped := map[string][]*Aircraft{}
	var order []string

	sc := bufio.NewScanner(bytes.NewReader(rawTable))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			continue
		}
		count, _ := strconv.Atoi(fields[7])
		ac := &Aircraft{
			Designator:       fields[0],
			Name:             fields[1],
			Description:      fields[2],
			WTC:              fields[3],
			WTG:              fields[4],
			ManufacturerCode: fields[5],
			AircraftType:     fields[6],
			EngineCount:      count,
			EngineType:       fields[8],
		}
		if _, ok := grouped[ac.Designator]; !ok {
			order = append(order, ac.Designator)
		}
		grouped[ac.Designator] = append(grouped[ac.Designator], ac)
	}

	db = make(map[string]*Aircraft, len(order))
	for _, key := range order {
		db[key] = pickBest(grouped[key])
	}
}

// Guess finds the aircraft type for a flight-plan aircraft string by
// longest-prefix lookup: the first 4 characters, then 3, 2, 1. Returns
// nil when nothing matches.
func Guess(code string) *Aircraft {
	buildOnce.Do(build)

	l := len(code)
	if l > 4 {
		l = 4
	}
	for ; l > 0; l-- {
		if ac, ok := db[code[:l]]; ok {
			return ac
		}
	}
	return nil
}
