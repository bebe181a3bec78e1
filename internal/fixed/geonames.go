package fixed

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vatsimnerd/camden-server/internal/geom"
)

// countryInfo column positions in the geonames dump.
const (
	gnColISO       = 0
	gnColISO3      = 1
	gnColName      = 4
	gnColCapital   = 5
	gnColContinent = 8
	gnColGeonameID = 16
	gnColNeighbors = 17
)

// parseGeonamesCountries reads the tab-separated countryInfo dump.
// Comment lines start with '#'.
func parseGeonamesCountries(r io.Reader) (map[string]GeonamesCountry, error) {
	countries := map[string]GeonamesCountry{}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= gnColGeonameID {
			continue
		}
		country := GeonamesCountry{
			ISO:       fields[gnColISO],
			ISO3:      fields[gnColISO3],
			Name:      fields[gnColName],
			Capital:   fields[gnColCapital],
			Continent: fields[gnColContinent],
			GeonameID: fields[gnColGeonameID],
		}
		if len(fields) > gnColNeighbors && fields[gnColNeighbors] != "" {
			country.Neighbours = strings.Split(fields[gnColNeighbors], ",")
		}
		countries[country.GeonameID] = country
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading geonames countries: %w", err)
	}
	return countries, nil
}

// parseGeonamesShapes reads the zipped simplified country shapes. The
// archive holds a single GeoJSON feature collection with one feature
// per country, keyed by geoNameId.
func parseGeonamesShapes(path string) ([]GeonamesShape, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapes archive: %w", err)
	}
	defer zr.Close()

	var raw []byte
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".json") {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", f.Name, err)
			}
			raw, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f.Name, err)
			}
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("no geojson file in shapes archive")
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding shapes geojson: %w", err)
	}

	shapes := make([]GeonamesShape, 0, len(fc.Features))
	for _, feat := range fc.Features {
		refID := shapeRefID(feat.Properties["geoNameId"])
		if refID == "" {
			continue
		}
		var mp orb.MultiPolygon
		switch shape := feat.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{shape}
		case orb.MultiPolygon:
			mp = shape
		default:
			continue
		}
		bound := mp.Bound()
		shapes = append(shapes, GeonamesShape{
			RefID:    refID,
			Geometry: mp,
			Bound: geom.Rect{
				SouthWest: geom.Point{Lat: bound.Min[1], Lng: bound.Min[0]},
				NorthEast: geom.Point{Lat: bound.Max[1], Lng: bound.Max[0]},
			},
		})
	}
	return shapes, nil
}

// shapeRefID tolerates the id arriving as a string or a number.
func shapeRefID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
