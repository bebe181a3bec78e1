package fixed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ourairports runways.csv columns of interest.
const (
	rwyColAirportIdent = 2
	rwyColLengthFt     = 3
	rwyColWidthFt      = 4
	rwyColSurface      = 5
	rwyColLeIdent      = 8
	rwyColLeHeading    = 12
	rwyColHeIdent      = 14
	rwyColHeHeading    = 18
)

// parseRunways reads the ourairports runway CSV and attaches each
// runway end to its airport. Rows for unknown airports are skipped.
func parseRunways(r io.Reader, airports map[string]*Airport) error {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1

	header := true
	for {
		record, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading runways csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) <= rwyColHeHeading {
			continue
		}

		arpt, ok := airports[record[rwyColAirportIdent]]
		if !ok {
			continue
		}

		length, _ := strconv.Atoi(record[rwyColLengthFt])
		width, _ := strconv.Atoi(record[rwyColWidthFt])
		surface := record[rwyColSurface]

		for _, end := range []struct {
			ident   string
			heading string
		}{
			{record[rwyColLeIdent], record[rwyColLeHeading]},
			{record[rwyColHeIdent], record[rwyColHeHeading]},
		} {
			if end.ident == "" {
				continue
			}
			heading, _ := strconv.ParseFloat(end.heading, 64)
			arpt.Runways[end.ident] = Runway{
				Ident:    end.ident,
				Heading:  heading,
				LengthFt: length,
				WidthFt:  width,
				Surface:  surface,
			}
		}
	}
	return nil
}
