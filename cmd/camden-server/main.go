// Package main runs the camden server: a live-map backend that polls
// the VATSIM data feed and streams viewport diffs to map clients.
//
// Usage:
//
//	camden-server [options]
//
// Options:
//
//	-c FILE    Configuration file (YAML). Without it the built-in
//	           defaults are used.
//
// API Endpoints:
//
//	GET /api/updates/{min_lng}/{min_lat}/{max_lng}/{max_lat}/{zoom}
//	    Server-sent event stream of pilot/airport/FIR diffs for the
//	    viewport. Optional: ?query=<filter>&show_wx=true
//
//	GET /api/ws/updates/{min_lng}/{min_lat}/{max_lng}/{max_lat}/{zoom}
//	    The same stream over a websocket.
//
//	GET /api/airports/{code}
//	    Airport lookup by ICAO or "ICAO:IATA". Optional: ?wx=true
//
//	GET /api/pilots/{callsign}
//	    Live pilot record with its stored track.
//
//	GET /api/chkquery?query=<filter>
//	    Validate a filter expression.
//
//	GET /api/metrics
//	    Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/config"
	"github.com/vatsimnerd/camden-server/internal/manager"
	"github.com/vatsimnerd/camden-server/internal/web"
)

func main() {
	cfgPath := flag.String("c", "", "configuration file")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", cfg.Log.Level, err)
		os.Exit(1)
	}
	log.SetLevel(level)

	ctx := context.Background()
	mgr := manager.New(ctx, cfg)

	go func() {
		if err := mgr.Run(ctx); err != nil {
			log.WithError(err).Fatal("manager stopped")
		}
	}()

	server := web.NewServer(mgr, cfg.Web.Addr)
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
