package web

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/filter"
	"github.com/vatsimnerd/camden-server/internal/fixed"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
	"github.com/vatsimnerd/camden-server/internal/weather"
)

// stateSource is the slice of the manager a streaming session reads.
type stateSource interface {
	GetPilots(rect geom.Rect) []*vatsim.Pilot
	GetAllPilots() []*vatsim.Pilot
	GetAirports(rect geom.Rect, showWX bool) []*fixed.Airport
	GetAllAirports(showWX bool) []*fixed.Airport
	GetFIRs(rect geom.Rect) []*fixed.FIR
	GetAllFIRs() []*fixed.FIR
	Weather() *weather.Manager
}

// Below this zoom the map may wrap around on screen, so the viewport
// boundaries are meaningless and every object is streamed.
const minZoom = 3.0

const (
	tickPeriod     = 5 * time.Second
	pilotChunkSize = 100
)

// session is one streaming client: its viewport, its optional pilot
// filter, and the last state it has been shown. Diffs are computed
// against that state every tick.
type session struct {
	id       string
	mgr      stateSource
	rect     geom.Rect
	noBounds bool
	showWX   bool
	expr     *filter.Expression[*vatsim.Pilot]

	pilotsState   map[string]*vatsim.Pilot
	airportsState map[string]*fixed.Airport
	firsState     map[string]*fixed.FIR
}

func newSession(mgr stateSource, rect geom.Rect, zoom float64, showWX bool, expr *filter.Expression[*vatsim.Pilot]) *session {
	s := &session{
		id:            uuid.NewString()[:18],
		mgr:           mgr,
		rect:          rect,
		noBounds:      zoom < minZoom,
		showWX:        showWX,
		expr:          expr,
		pilotsState:   map[string]*vatsim.Pilot{},
		airportsState: map[string]*fixed.Airport{},
		firsState:     map[string]*fixed.FIR{},
	}
	if s.noBounds {
		log.WithField("client_id", s.id).Info("no_bounds flag set")
	}
	return s
}

// tick computes the full message batch for one update cycle.
func (s *session) tick(ctx context.Context) []UpdateMessage {
	var messages []UpdateMessage

	var pilots []*vatsim.Pilot
	if s.noBounds {
		pilots = s.mgr.GetAllPilots()
	} else {
		pilots = s.mgr.GetPilots(s.rect)
	}
	if s.expr != nil {
		filtered := pilots[:0:0]
		for _, p := range pilots {
			if s.expr.Evaluate(p) {
				filtered = append(filtered, p)
			}
		}
		pilots = filtered
	}

	pSet, pDelete := calcDiff(pilots, s.pilotsState,
		func(p *vatsim.Pilot) string { return p.Callsign },
		func(a, b *vatsim.Pilot) bool { return a.Equal(b) },
	)
	if len(pSet) > pilotChunkSize {
		for len(pSet) > 0 {
			n := min(pilotChunkSize, len(pSet))
			messages = append(messages, pilotsSet(s.id, pSet[:n]))
			pSet = pSet[n:]
		}
	} else {
		messages = append(messages, pilotsSet(s.id, pSet))
	}
	messages = append(messages, pilotsDelete(s.id, pDelete))

	var airports []*fixed.Airport
	if s.noBounds {
		airports = s.mgr.GetAllAirports(s.showWX)
	} else {
		airports = s.mgr.GetAirports(s.rect, s.showWX)
	}
	aSet, aDelete := calcDiff(airports, s.airportsState,
		func(a *fixed.Airport) string { return a.CompoundID() },
		func(a, b *fixed.Airport) bool { return a.Equal(b) },
	)
	if s.showWX {
		s.preloadWeather(ctx, aSet)
	}
	messages = append(messages, airportsSet(s.id, aSet))
	messages = append(messages, airportsDelete(s.id, aDelete))

	var firs []*fixed.FIR
	if s.noBounds {
		firs = s.mgr.GetAllFIRs()
	} else {
		firs = s.mgr.GetFIRs(s.rect)
	}

	fSet, fDelete := calcDiff(firs, s.firsState,
		func(f *fixed.FIR) string { return f.ICAO },
		func(a, b *fixed.FIR) bool { return a.Equal(b) },
	)
	messages = append(messages, firsSet(s.id, fSet))
	messages = append(messages, firsDelete(s.id, fDelete))

	return messages
}

// weatherPreloadIDs picks the stations of the airports being set that
// have no observation attached yet.
func weatherPreloadIDs(airports []*fixed.Airport) []string {
	ids := make([]string, 0, len(airports))
	for _, arpt := range airports {
		if arpt.Wx == nil {
			ids = append(ids, arpt.ICAO)
		}
	}
	return ids
}

// preloadWeather warms the cache in the background so observations show
// up on a later tick without stalling this one.
func (s *session) preloadWeather(ctx context.Context, airports []*fixed.Airport) {
	ids := weatherPreloadIDs(airports)
	if len(ids) == 0 {
		return
	}
	go s.mgr.Weather().Preload(ctx, ids)
}

// stream runs the tick loop until the context ends or send fails.
// Messages with empty data are suppressed.
func (s *session) stream(ctx context.Context, send func(UpdateMessage) error) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		for _, msg := range s.tick(ctx) {
			if msg.Data.IsEmpty() {
				continue
			}
			if err := send(msg); err != nil {
				log.WithError(err).WithField("client_id", s.id).Debug("send failed, closing session")
				return
			}
		}

		select {
		case <-ctx.Done():
			log.WithField("client_id", s.id).Debug("client disconnected")
			return
		case <-ticker.C:
		}
	}
}
