package fixed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// vatspyData is the raw parse of a VATSpy.dat file before FIR
// boundaries are resolved.
type vatspyData struct {
	countries []Country
	airports  []*Airport
	firs      []firRecord
	uirs      []*UIR
}

type firRecord struct {
	icao       string
	name       string
	prefix     string
	boundaryID string
}

// parseVatspy reads the INI-like VATSpy.dat sections. Unknown sections
// are skipped; malformed lines are ignored.
func parseVatspy(r io.Reader) (*vatspyData, error) {
	data := &vatspyData{}
	section := ""

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(line[1 : len(line)-1])
			continue
		}

		fields := strings.Split(line, "|")
		switch section {
		case "countries":
			if len(fields) < 2 {
				continue
			}
			country := Country{Name: fields[0], Prefix: fields[1]}
			if len(fields) > 2 {
				country.ControlName = fields[2]
			}
			data.countries = append(data.countries, country)

		case "airports":
			if len(fields) < 7 {
				continue
			}
			lat, latErr := strconv.ParseFloat(fields[2], 64)
			lng, lngErr := strconv.ParseFloat(fields[3], 64)
			if latErr != nil || lngErr != nil {
				continue
			}
			data.airports = append(data.airports, &Airport{
				ICAO:     fields[0],
				Name:     fields[1],
				Position: geom.Point{Lat: lat, Lng: lng}.Clamp(),
				IATA:     fields[4],
				FIRID:    fields[5],
				IsPseudo: fields[6] == "1",
				Runways:  map[string]Runway{},
			})

		case "firs":
			if len(fields) < 4 {
				continue
			}
			data.firs = append(data.firs, firRecord{
				icao:       fields[0],
				name:       fields[1],
				prefix:     fields[2],
				boundaryID: fields[3],
			})

		case "uirs":
			if len(fields) < 3 {
				continue
			}
			data.uirs = append(data.uirs, &UIR{
				ICAO:   fields[0],
				Name:   fields[1],
				FIRIDs: strings.Split(fields[2], ","),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading vatspy data: %w", err)
	}
	return data, nil
}

// resolveFIRs joins FIR records with their boundary geometries.
// Records whose boundary id is unknown keep an empty boundary rather
// than being dropped.
func (v *vatspyData) resolveFIRs(boundaries map[string]Boundaries) []*FIR {
	firs := make([]*FIR, 0, len(v.firs))
	for _, rec := range v.firs {
		bid := rec.boundaryID
		if bid == "" {
			bid = rec.icao
		}
		fir := &FIR{
			ICAO:        rec.icao,
			Name:        rec.name,
			Prefix:      rec.prefix,
			Controllers: map[string]*vatsim.Controller{},
		}
		if b, ok := boundaries[bid]; ok {
			fir.Boundaries = b
		}
		firs = append(firs, fir)
	}
	return firs
}
