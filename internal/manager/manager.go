// Package manager owns the live state: it polls the network snapshot,
// reconciles pilots and controllers into the shared maps and spatial
// indices, and answers viewport queries for the web layer.
package manager

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/config"
	"github.com/vatsimnerd/camden-server/internal/fixed"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/track"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
	"github.com/vatsimnerd/camden-server/internal/weather"
)

const cleanupEveryXIter = 5

// Manager reconciles upstream snapshots into queryable state.
type Manager struct {
	cfg     *config.Config
	fetcher *vatsim.Fetcher
	weather *weather.Manager
	tracks  track.Store // nil when the store failed to open
	metrics *Metrics

	staticMu   sync.RWMutex
	fixed      *fixed.Data
	airports2d geom.PointIndex
	firs2d     geom.RectIndex

	pilotsMu sync.RWMutex
	pilots   map[string]*vatsim.Pilot
	pilots2d geom.PointIndex
	pilotsPO map[string]geom.PointObject

	gnMu        sync.RWMutex
	gnCountries map[string]fixed.GeonamesCountry
	gnShapes    map[string]*fixed.GeonamesShape
	gnShapes2d  geom.RectIndex
}

// New builds the manager and opens the track store. A failing track
// store is logged and disables tracking instead of failing the boot.
func New(ctx context.Context, cfg *config.Config) *Manager {
	log.Info("setting vatsim data manager up")

	m := &Manager{
		cfg:         cfg,
		fetcher:     vatsim.NewFetcher(cfg.API.URL),
		weather:     weather.NewManager(cfg.Weather.URL, cfg.Weather.MetarTTL),
		pilots:      map[string]*vatsim.Pilot{},
		pilotsPO:    map[string]geom.PointObject{},
		gnCountries: map[string]fixed.GeonamesCountry{},
		gnShapes:    map[string]*fixed.GeonamesShape{},
	}

	if cfg.Track.Enabled {
		tracks, err := track.Open(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("error creating track store")
		} else {
			m.tracks = tracks
			t := time.Now()
			if err := tracks.Cleanup(ctx); err != nil {
				log.WithError(err).Error("error cleaning up tracks")
			} else {
				log.WithField("took", time.Since(t).Seconds()).Info("boot-time db cleanup done")
			}
		}
	}

	m.metrics = NewMetrics(vatsim.TimestampParseFailures, m.weather.APIRequests)
	return m
}

// Metrics exposes the manager registry for the web layer.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Weather exposes the weather cache for the streaming sessions.
func (m *Manager) Weather() *weather.Manager {
	return m.weather
}

func (m *Manager) setupFixedData() error {
	log.Info("loading fixed data")
	data, err := fixed.Load(m.cfg)
	if err != nil {
		return err
	}

	m.staticMu.Lock()
	defer m.staticMu.Unlock()
	data.Airports(func(arpt *fixed.Airport) {
		m.airports2d.Insert(geom.PointObject{ID: arpt.CompoundID(), Point: arpt.Position})
	})
	data.FIRs(func(fir *fixed.FIR) {
		m.firs2d.Insert(geom.RectObject{
			ID: fir.ICAO,
			Rect: geom.Rect{
				SouthWest: fir.Boundaries.Min,
				NorthEast: fir.Boundaries.Max,
			},
		})
	})
	m.fixed = data
	log.Info("fixed data configured")
	return nil
}

func (m *Manager) setupGeonamesData() error {
	t := time.Now()
	countries, err := fixed.LoadCountries(m.cfg)
	if err != nil {
		return err
	}
	shapes, err := fixed.LoadShapes(m.cfg)
	if err != nil {
		return err
	}

	m.gnMu.Lock()
	defer m.gnMu.Unlock()
	m.gnCountries = countries
	for i := range shapes {
		shape := &shapes[i]
		m.gnShapes[shape.RefID] = shape
		m.gnShapes2d.Insert(geom.RectObject{ID: shape.RefID, Rect: shape.Bound})
	}
	log.WithField("took", time.Since(t).Seconds()).Debug("geonames data processed")
	return nil
}

// SearchCountry reverse-geocodes a position to its geonames country.
func (m *Manager) SearchCountry(p geom.Point) *fixed.GeonamesCountry {
	m.gnMu.RLock()
	defer m.gnMu.RUnlock()

	env := geom.Bounds{Min: p.Coord(), Max: p.Coord()}
	for _, id := range m.gnShapes2d.Search(env) {
		shape := m.gnShapes[id]
		if shape != nil && shape.Contains(p) {
			if country, ok := m.gnCountries[shape.RefID]; ok {
				return &country
			}
			return nil
		}
	}
	return nil
}

// removePilot strips a pilot from all three views. Reports whether the
// pilot was present.
func (m *Manager) removePilot(callsign string) bool {
	po, ok := m.pilotsPO[callsign]
	if !ok {
		return false
	}
	delete(m.pilotsPO, callsign)
	m.pilots2d.Delete(po)
	delete(m.pilots, callsign)
	return true
}

func (m *Manager) insertPilot(p *vatsim.Pilot) {
	po := geom.PointObject{ID: p.Callsign, Point: p.Position}
	m.pilots2d.Insert(po)
	m.pilotsPO[p.Callsign] = po
	m.pilots[p.Callsign] = p
}

// loopState is the reconciliation bookkeeping carried between ticks.
type loopState struct {
	pilotCallsigns map[string]struct{}
	controllers    map[string]vatsim.Controller
	dataUpdatedAt  int64
	cleanupIn      int
}

func newLoopState() *loopState {
	return &loopState{
		pilotCallsigns: map[string]struct{}{},
		controllers:    map[string]vatsim.Controller{},
		cleanupIn:      cleanupEveryXIter,
	}
}

// processSnapshot applies one accepted snapshot to the shared state.
func (m *Manager) processSnapshot(ctx context.Context, data *vatsim.Snapshot, st *loopState) {
	st.dataUpdatedAt = data.UpdatedAt.Unix()
	m.metrics.SetDataTimestamp(st.dataUpdatedAt)

	log.Info("processing pilots")
	t := time.Now()
	fresh := make(map[string]struct{}, len(data.Pilots))
	pilotsByCountry := map[string]int{}

	for i := range data.Pilots {
		pilot := &data.Pilots[i]
		fresh[pilot.Callsign] = struct{}{}

		// track append and geocoding run outside the critical
		// section: readers wait for at most one upsert, never for
		// the pass's I/O
		if m.tracks != nil {
			if err := m.tracks.Store(ctx, pilot); err != nil {
				log.WithError(err).Error("error storing pilot track")
			}
		}
		if country := m.SearchCountry(pilot.Position); country != nil {
			pilotsByCountry[country.GeonameID]++
		}

		m.pilotsMu.Lock()
		// upsert = remove previous instance first
		m.removePilot(pilot.Callsign)
		m.insertPilot(pilot)
		m.pilotsMu.Unlock()
	}

	m.pilotsMu.Lock()
	for cs := range st.pilotCallsigns {
		if _, ok := fresh[cs]; !ok {
			m.removePilot(cs)
		}
	}
	m.pilotsMu.Unlock()
	st.pilotCallsigns = fresh

	took := time.Since(t).Seconds()
	m.metrics.ProcessingTime.WithLabelValues("pilot").Set(took)
	m.gnMu.RLock()
	for geoID, count := range pilotsByCountry {
		country, ok := m.gnCountries[geoID]
		if !ok {
			continue
		}
		m.metrics.ObjectsOnline.
			WithLabelValues("pilot", country.ISO, country.Continent).
			Set(float64(count))
	}
	m.gnMu.RUnlock()
	log.WithFields(log.Fields{"count": len(data.Pilots), "took": took}).Info("pilots processed")

	log.Info("processing controllers")
	t = time.Now()
	freshCtrl := make(map[string]vatsim.Controller, len(data.Controllers))

	m.staticMu.Lock()
	if m.fixed != nil {
		for _, ctrl := range data.Controllers {
			switch ctrl.Facility {
			case vatsim.FacilityReject:
				continue
			case vatsim.FacilityRadar:
				freshCtrl[ctrl.Callsign] = ctrl
				m.fixed.SetFIRController(ctrl)
			default:
				freshCtrl[ctrl.Callsign] = ctrl
				m.fixed.SetAirportController(ctrl)
			}
		}

		for cs, ctrl := range st.controllers {
			if _, ok := freshCtrl[cs]; ok {
				continue
			}
			if ctrl.Facility == vatsim.FacilityRadar {
				m.fixed.ResetFIRController(ctrl)
			} else {
				m.fixed.ResetAirportController(ctrl)
			}
		}
	}
	m.staticMu.Unlock()
	st.controllers = freshCtrl

	took = time.Since(t).Seconds()
	m.metrics.ProcessingTime.WithLabelValues("controller").Set(took)
	m.metrics.ObjectsOnline.WithLabelValues("controller", "", "").Set(float64(len(freshCtrl)))
	log.WithFields(log.Fields{"count": len(freshCtrl), "took": took}).Info("controllers processed")
}

// housekeeping reads the track counters every tick and cleans the store
// up every fifth one.
func (m *Manager) housekeeping(ctx context.Context, st *loopState) {
	if m.tracks == nil {
		return
	}

	t := time.Now()
	tracks, points, err := m.tracks.Counters(ctx)
	if err != nil {
		log.WithError(err).Error("error getting db counters")
	} else {
		m.metrics.DatabaseObjectsCount.WithLabelValues("track").Set(float64(tracks))
		m.metrics.DatabaseObjectsCount.WithLabelValues("trackpoint").Set(float64(points))
		m.metrics.DBCountersFetchTime.Set(time.Since(t).Seconds())
	}

	st.cleanupIn--
	if st.cleanupIn > 0 {
		log.WithField("iterations", st.cleanupIn).Debug("iterations to db cleanup")
		return
	}
	t = time.Now()
	if err := m.tracks.Cleanup(ctx); err != nil {
		log.WithError(err).Error("error cleaning up db")
		return
	}
	took := time.Since(t).Seconds()
	m.metrics.DBCleanupTime.Set(took)
	log.WithField("took", took).Info("db cleanup done")
	st.cleanupIn = cleanupEveryXIter
}

// Run loads the static data and then polls the upstream snapshot until
// the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.setupFixedData(); err != nil {
		return err
	}
	if err := m.setupGeonamesData(); err != nil {
		return err
	}

	st := newLoopState()
	for {
		log.Info("loading vatsim data")
		t := time.Now()
		data, err := m.fetcher.Fetch(ctx)
		took := time.Since(t).Seconds()
		m.metrics.DataLoadTime.Set(took)

		if err != nil {
			log.WithError(err).Error("error loading vatsim data")
		} else {
			log.WithField("took", took).Info("vatsim data loaded")
			if ts := data.UpdatedAt.Unix(); ts > st.dataUpdatedAt {
				m.processSnapshot(ctx, data, st)
			}
			m.housekeeping(ctx, st)
		}

		select {
		case <-ctx.Done():
			if m.tracks != nil {
				m.tracks.Close()
			}
			return ctx.Err()
		case <-time.After(m.cfg.API.PollPeriod):
		}
	}
}

// GetPilots returns the pilots inside the viewport.
func (m *Manager) GetPilots(rect geom.Rect) []*vatsim.Pilot {
	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()

	var pilots []*vatsim.Pilot
	for _, env := range rect.Envelope().Split() {
		for _, callsign := range m.pilots2d.Search(env) {
			if pilot, ok := m.pilots[callsign]; ok {
				pilots = append(pilots, pilot)
			}
		}
	}
	return pilots
}

// GetAllPilots bypasses the spatial index for no-bounds sessions.
func (m *Manager) GetAllPilots() []*vatsim.Pilot {
	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()

	pilots := make([]*vatsim.Pilot, 0, len(m.pilots))
	for _, pilot := range m.pilots {
		pilots = append(pilots, pilot)
	}
	return pilots
}

func (m *Manager) attachWeather(arpt *fixed.Airport) {
	arpt.Wx = m.weather.Cached(arpt.ICAO)
}

// GetAirports returns the staffed airports inside the viewport. With
// showWX set, cached weather is attached; the streaming path never
// fetches inline.
func (m *Manager) GetAirports(rect geom.Rect, showWX bool) []*fixed.Airport {
	m.staticMu.RLock()
	defer m.staticMu.RUnlock()
	if m.fixed == nil {
		return nil
	}

	var airports []*fixed.Airport
	for _, env := range rect.Envelope().Split() {
		for _, cid := range m.airports2d.Search(env) {
			arpt := m.fixed.FindAirportCompound(cid)
			if arpt == nil || arpt.Controllers.IsEmpty() {
				continue
			}
			if showWX {
				m.attachWeather(arpt)
			}
			airports = append(airports, arpt)
		}
	}
	return airports
}

// GetAllAirports returns every staffed airport.
func (m *Manager) GetAllAirports(showWX bool) []*fixed.Airport {
	m.staticMu.RLock()
	defer m.staticMu.RUnlock()
	if m.fixed == nil {
		return nil
	}

	var airports []*fixed.Airport
	m.fixed.Airports(func(a *fixed.Airport) {
		if a.Controllers.IsEmpty() {
			return
		}
		arpt := a.Clone()
		if showWX {
			m.attachWeather(arpt)
		}
		airports = append(airports, arpt)
	})
	return airports
}

// GetFIRs returns the staffed FIRs intersecting the viewport, deduped
// by ICAO.
func (m *Manager) GetFIRs(rect geom.Rect) []*fixed.FIR {
	m.staticMu.RLock()
	defer m.staticMu.RUnlock()
	if m.fixed == nil {
		return nil
	}

	seen := map[string]*fixed.FIR{}
	for _, env := range rect.Envelope().Split() {
		for _, icao := range m.firs2d.Search(env) {
			for _, fir := range m.fixed.FindFIRs(icao) {
				if !fir.IsEmpty() {
					seen[fir.ICAO] = fir
				}
			}
		}
	}

	firs := make([]*fixed.FIR, 0, len(seen))
	for _, fir := range seen {
		firs = append(firs, fir)
	}
	return firs
}

// GetAllFIRs returns every staffed FIR.
func (m *Manager) GetAllFIRs() []*fixed.FIR {
	m.staticMu.RLock()
	defer m.staticMu.RUnlock()
	if m.fixed == nil {
		return nil
	}

	seen := map[string]*fixed.FIR{}
	m.fixed.FIRs(func(f *fixed.FIR) {
		if !f.IsEmpty() {
			seen[f.ICAO] = f.Clone()
		}
	})
	firs := make([]*fixed.FIR, 0, len(seen))
	for _, fir := range seen {
		firs = append(firs, fir)
	}
	return firs
}

// FindAirport looks an airport up by ICAO or compound id. On the REST
// path a weather fetch is allowed to go remote.
func (m *Manager) FindAirport(ctx context.Context, code string, showWX bool) *fixed.Airport {
	m.staticMu.RLock()
	arpt := (*fixed.Airport)(nil)
	if m.fixed != nil {
		arpt = m.fixed.FindAirport(code)
	}
	m.staticMu.RUnlock()

	if arpt != nil && showWX {
		arpt.Wx = m.weather.Get(ctx, arpt.ICAO)
	}
	return arpt
}

// GetPilotByCallsign returns the live pilot or nil.
func (m *Manager) GetPilotByCallsign(callsign string) *vatsim.Pilot {
	m.pilotsMu.RLock()
	defer m.pilotsMu.RUnlock()
	return m.pilots[callsign]
}

// GetPilotTrack returns the stored track of a pilot, nil without a
// track store.
func (m *Manager) GetPilotTrack(ctx context.Context, pilot *vatsim.Pilot) ([]track.Point, error) {
	if m.tracks == nil {
		return nil, nil
	}
	return m.tracks.GetTrackPoints(ctx, pilot)
}
