// Package web is the HTTP surface: the streaming map updates endpoint
// (SSE and websocket), the REST lookups, and the metrics exporter.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/filter"
	"github.com/vatsimnerd/camden-server/internal/geom"
	"github.com/vatsimnerd/camden-server/internal/manager"
	"github.com/vatsimnerd/camden-server/internal/track"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// Server wires the manager into the HTTP routes.
type Server struct {
	mgr  *manager.Manager
	addr string
}

func NewServer(mgr *manager.Manager, addr string) *Server {
	return &Server{mgr: mgr, addr: addr}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	log.WithField("addr", s.addr).Info("starting web server")
	return http.ListenAndServe(s.addr, s.Router())
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		// streaming endpoints hold the connection open, no timeout here
		r.Get("/updates/{min_lng}/{min_lat}/{max_lng}/{max_lat}/{zoom}", s.handleUpdates)
		r.Get("/ws/updates/{min_lng}/{min_lat}/{max_lng}/{max_lat}/{zoom}", s.handleUpdatesWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/airports/{code}", s.handleGetAirport)
			r.Get("/pilots/{callsign}", s.handleGetPilot)
			r.Get("/chkquery", s.handleCheckQuery)
			r.Get("/__build__", s.handleBuildInfo)
		})

		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			s.mgr.Metrics().Registry(),
			promhttp.HandlerOpts{},
		))
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionFromRequest parses the shared viewport/query parameters of
// both streaming endpoints.
func (s *Server) sessionFromRequest(r *http.Request) (*session, error) {
	coords := [4]float64{}
	for i, name := range []string{"min_lng", "min_lat", "max_lng", "max_lat"} {
		v, err := strconv.ParseFloat(chi.URLParam(r, name), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", name, chi.URLParam(r, name))
		}
		coords[i] = v
	}
	zoom, err := strconv.ParseFloat(chi.URLParam(r, "zoom"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid zoom: %s", chi.URLParam(r, "zoom"))
	}

	showWX := false
	if v := r.URL.Query().Get("show_wx"); v != "" {
		showWX, _ = strconv.ParseBool(v)
	}

	var expr *filter.Expression[*vatsim.Pilot]
	if query := r.URL.Query().Get("query"); query != "" {
		expr, err = compileQuery(query)
		if err != nil {
			return nil, err
		}
	}

	rect := geom.NewRect(coords[0], coords[1], coords[2], coords[3])
	sess := newSession(s.mgr, rect, zoom, showWX, expr)
	log.WithFields(log.Fields{
		"client_id": sess.id,
		"bbox":      coords,
		"zoom":      zoom,
	}).Info("client connected")
	return sess, nil
}

// handleUpdates streams state diffs as server-sent events.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess.stream(r.Context(), func(msg UpdateMessage) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleUpdatesWS streams the same diffs over a websocket.
func (s *Server) handleUpdatesWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// drain control frames so pings and close get processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sess.stream(r.Context(), func(m UpdateMessage) error {
		return conn.WriteJSON(m)
	})
}

// PilotResponse is the single-pilot lookup payload: the live record
// plus its stored track.
type PilotResponse struct {
	*vatsim.Pilot
	Track []track.Point `json:"track,omitempty"`
}

func (s *Server) handleGetPilot(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")
	pilot := s.mgr.GetPilotByCallsign(callsign)
	if pilot == nil {
		writeError(w, http.StatusNotFound, "pilot not found")
		return
	}

	points, err := s.mgr.GetPilotTrack(r.Context(), pilot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PilotResponse{Pilot: pilot, Track: points})
}

func (s *Server) handleGetAirport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	showWX := false
	if v := r.URL.Query().Get("wx"); v != "" {
		showWX, _ = strconv.ParseBool(v)
	}

	arpt := s.mgr.FindAirport(r.Context(), code, showWX)
	if arpt == nil {
		writeError(w, http.StatusNotFound, "airport not found")
		return
	}
	writeJSON(w, http.StatusOK, arpt)
}

func (s *Server) handleCheckQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if _, err := compileQuery(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// build metadata, set via -ldflags at release time
var (
	BuildName    = "camden-server"
	BuildVersion = "dev"
)

func (s *Server) handleBuildInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    BuildName,
		"version": BuildVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
