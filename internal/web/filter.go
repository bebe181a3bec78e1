package web

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vatsimnerd/camden-server/internal/filter"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

var allowedFilterFields = map[string]struct{}{
	"callsign":  {},
	"name":      {},
	"alt":       {},
	"gs":        {},
	"lat":       {},
	"lng":       {},
	"aircraft":  {},
	"arrival":   {},
	"departure": {},
}

func filterFieldList() []string {
	fields := make([]string, 0, len(allowedFilterFields))
	for f := range allowedFilterFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// compilePilotFilter binds a parsed condition to a pilot field. Flight
// plan fields on a pilot without a plan evaluate to false.
func compilePilotFilter(cond filter.Cond) (filter.EvaluateFunc[*vatsim.Pilot], error) {
	if _, ok := allowedFilterFields[cond.Ident]; !ok {
		return nil, &filter.CompileError{
			Msg: fmt.Sprintf("%s is not a valid field to query, valid fields are: [%s]",
				cond.Ident, strings.Join(filterFieldList(), ", ")),
		}
	}

	switch cond.Ident {
	case "callsign":
		return func(p *vatsim.Pilot) bool { return cond.EvalString(p.Callsign) }, nil
	case "name":
		return func(p *vatsim.Pilot) bool { return cond.EvalString(p.Name) }, nil
	case "alt":
		return func(p *vatsim.Pilot) bool { return cond.EvalInt(int64(p.Altitude)) }, nil
	case "gs":
		return func(p *vatsim.Pilot) bool { return cond.EvalInt(int64(p.Groundspeed)) }, nil
	case "lat":
		return func(p *vatsim.Pilot) bool { return cond.EvalFloat(p.Position.Lat) }, nil
	case "lng":
		return func(p *vatsim.Pilot) bool { return cond.EvalFloat(p.Position.Lng) }, nil
	case "aircraft":
		return func(p *vatsim.Pilot) bool {
			return p.FlightPlan != nil && cond.EvalString(p.FlightPlan.Aircraft)
		}, nil
	case "arrival":
		return func(p *vatsim.Pilot) bool {
			return p.FlightPlan != nil && cond.EvalString(p.FlightPlan.Arrival)
		}, nil
	default: // departure
		return func(p *vatsim.Pilot) bool {
			return p.FlightPlan != nil && cond.EvalString(p.FlightPlan.Departure)
		}, nil
	}
}

// compileQuery parses and compiles a pilot filter query.
func compileQuery(query string) (*filter.Expression[*vatsim.Pilot], error) {
	expr, err := filter.Parse[*vatsim.Pilot](query)
	if err != nil {
		return nil, err
	}
	if err := expr.Compile(compilePilotFilter); err != nil {
		return nil, err
	}
	return expr, nil
}
