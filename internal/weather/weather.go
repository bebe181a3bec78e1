// Package weather caches METAR observations per airport with a TTL
// and an exponential blackout for stations that return nothing.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Info is the client-facing weather summary for one airport.
type Info struct {
	Temperature   *float64       `json:"temperature,omitempty"`
	DewPoint      *float64       `json:"dew_point,omitempty"`
	WindSpeed     *int           `json:"wind_speed,omitempty"`
	WindGust      *int           `json:"wind_gust,omitempty"`
	WindDirection *WindDirection `json:"wind_direction,omitempty"`
	Raw           string         `json:"raw"`
	TS            time.Time      `json:"ts"`
}

// Equal compares two observations nil-aware.
func (i *Info) Equal(other *Info) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.Raw == other.Raw &&
		i.TS.Equal(other.TS) &&
		eqPtr(i.Temperature, other.Temperature) &&
		eqPtr(i.DewPoint, other.DewPoint) &&
		eqPtr(i.WindSpeed, other.WindSpeed) &&
		eqPtr(i.WindGust, other.WindGust) &&
		eqPtr(i.WindDirection, other.WindDirection)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// WindDirection is either a degree value or "VRB".
type WindDirection struct {
	Variable bool
	Degrees  int
}

func (w WindDirection) MarshalJSON() ([]byte, error) {
	if w.Variable {
		return json.Marshal("VRB")
	}
	return json.Marshal(w.Degrees)
}

func (w *WindDirection) UnmarshalJSON(data []byte) error {
	var deg int
	if err := json.Unmarshal(data, &deg); err == nil {
		w.Degrees = deg
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("wind direction: unexpected value %s", data)
	}
	w.Variable = true
	return nil
}

// metarTime is the API's custom timestamp format.
type metarTime struct {
	time.Time
}

func (t *metarTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.DateTime, s)
	if err != nil {
		return fmt.Errorf("metar time %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

type metar struct {
	IcaoID      string         `json:"icaoId"`
	ReceiptTime metarTime      `json:"receiptTime"`
	ReportTime  metarTime      `json:"reportTime"`
	Temp        *float64       `json:"temp"`
	Dewp        *float64       `json:"dewp"`
	Wdir        *WindDirection `json:"wdir"`
	Wspd        *int           `json:"wspd"`
	Wgst        *int           `json:"wgst"`
	RawOb       string         `json:"rawOb"`
}

func (m metar) info() *Info {
	return &Info{
		Temperature:   m.Temp,
		DewPoint:      m.Dewp,
		WindSpeed:     m.Wspd,
		WindGust:      m.Wgst,
		WindDirection: m.Wdir,
		Raw:           m.RawOb,
		TS:            m.ReceiptTime.Time,
	}
}

const initialBlackout = time.Hour

type blacklistItem struct {
	setAt    time.Time
	duration time.Duration
}

func (b blacklistItem) expired() bool {
	return time.Now().After(b.setAt.Add(b.duration))
}

// Manager is the weather cache. Safe for concurrent use; the lock is
// never held across an HTTP call, so overlapping preloads may fetch
// the same stations twice. That window is accepted.
type Manager struct {
	baseURL  string
	metarTTL time.Duration
	client   *http.Client

	mu        sync.Mutex
	cache     map[string]*Info
	blacklist map[string]blacklistItem

	// APIRequests counts outgoing weather API calls.
	APIRequests prometheus.Counter
}

func NewManager(baseURL string, metarTTL time.Duration) *Manager {
	return &Manager{
		baseURL:   baseURL,
		metarTTL:  metarTTL,
		client:    &http.Client{Timeout: 15 * time.Second},
		cache:     map[string]*Info{},
		blacklist: map[string]blacklistItem{},
		APIRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_api_requests",
			Help: "Number of requests issued to the weather API",
		}),
	}
}

func (m *Manager) hasValidCache(id string) bool {
	info, ok := m.cache[id]
	return ok && time.Since(info.TS) < m.metarTTL
}

func (m *Manager) isBlacklisted(id string) bool {
	item, ok := m.blacklist[id]
	return ok && !item.expired()
}

// Cached returns the cached observation without going remote. Used on
// the streaming path where a fetch would stall the tick.
func (m *Manager) Cached(id string) *Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasValidCache(id) {
		return m.cache[id]
	}
	return nil
}

// Preload batch-fetches observations for every id that is neither
// blacklisted nor freshly cached. Errors are logged and swallowed.
func (m *Manager) Preload(ctx context.Context, ids []string) {
	m.mu.Lock()
	var missing []string
	for _, id := range ids {
		if !m.isBlacklisted(id) && !m.hasValidCache(id) {
			missing = append(missing, id)
		}
	}
	m.mu.Unlock()

	if len(missing) == 0 {
		return
	}

	joined := strings.Join(missing, ",")
	log.WithField("ids", joined).Info("preloading weather")

	metars, err := m.fetch(ctx, joined)
	if err != nil {
		log.WithError(err).Error("error preloading weather data")
		return
	}

	m.mu.Lock()
	for _, mt := range metars {
		m.cache[mt.IcaoID] = mt.info()
	}
	m.mu.Unlock()
}

// Get returns the observation for one airport: cache first, then a
// single-station fetch. An empty response blacklists the station for
// an hour, doubling on every further empty response.
func (m *Manager) Get(ctx context.Context, id string) *Info {
	m.mu.Lock()
	if m.hasValidCache(id) {
		info := m.cache[id]
		m.mu.Unlock()
		return info
	}
	if m.isBlacklisted(id) {
		m.mu.Unlock()
		log.WithField("id", id).Debug("station is blacklisted")
		return nil
	}
	m.mu.Unlock()

	metars, err := m.fetch(ctx, id)
	if err != nil {
		log.WithError(err).WithField("id", id).Error("error loading weather data")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(metars) == 0 {
		item, ok := m.blacklist[id]
		if ok {
			item = blacklistItem{setAt: time.Now(), duration: item.duration * 2}
		} else {
			item = blacklistItem{setAt: time.Now(), duration: initialBlackout}
		}
		log.WithFields(log.Fields{"id": id, "duration": item.duration}).Debug("blacklisting station")
		m.blacklist[id] = item
		return nil
	}

	info := metars[0].info()
	m.cache[id] = info
	return info
}

func (m *Manager) fetch(ctx context.Context, ids string) ([]metar, error) {
	u := fmt.Sprintf("%s?ids=%s&format=json", m.baseURL, url.QueryEscape(ids))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	m.APIRequests.Inc()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching weather: unexpected status %d", resp.StatusCode)
	}

	var metars []metar
	if err := json.NewDecoder(resp.Body).Decode(&metars); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}
	return metars, nil
}
