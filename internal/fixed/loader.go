package fixed

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vatsimnerd/camden-server/internal/config"
)

// cachedLoader downloads url into the cache file unless the file
// already exists, then returns the cached path. First-run failures are
// fatal to the caller: without the data the server cannot start.
func cachedLoader(url, cachePath string) (string, error) {
	if _, err := os.Stat(cachePath); err == nil {
		log.WithField("path", cachePath).Info("cache file found, skipping fetch")
		return cachePath, nil
	}

	log.WithField("url", url).Info("fetching static data")
	t := time.Now()

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	f, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("creating cache file %s: %w", cachePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing cache file %s: %w", cachePath, err)
	}

	log.WithFields(log.Fields{
		"path": cachePath,
		"took": time.Since(t).Seconds(),
	}).Info("static data fetched and cached")
	return cachePath, nil
}

func openCached(url, cachePath string) (*os.File, error) {
	path, err := cachedLoader(url, cachePath)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Load assembles the full static container: VATSpy countries,
// airports, FIRs and UIRs, FIR boundary geometries, and the runway
// table.
func Load(cfg *config.Config) (*Data, error) {
	vf, err := openCached(cfg.Fixed.VatspyDataURL, filepath.Join(cfg.Cache.Dir, "vatspy.dat"))
	if err != nil {
		return nil, err
	}
	defer vf.Close()
	vatspy, err := parseVatspy(vf)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"countries": len(vatspy.countries),
		"airports":  len(vatspy.airports),
		"firs":      len(vatspy.firs),
		"uirs":      len(vatspy.uirs),
	}).Info("vatspy data parsed")

	bf, err := openCached(cfg.Fixed.BoundariesURL, filepath.Join(cfg.Cache.Dir, "boundaries.geojson"))
	if err != nil {
		return nil, err
	}
	defer bf.Close()
	boundaries, err := parseBoundaries(bf)
	if err != nil {
		return nil, err
	}

	airportsByICAO := make(map[string]*Airport, len(vatspy.airports))
	for _, arpt := range vatspy.airports {
		airportsByICAO[arpt.ICAO] = arpt
	}

	rf, err := openCached(cfg.Fixed.RunwaysURL, filepath.Join(cfg.Cache.Dir, "runways.csv"))
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	if err := parseRunways(rf, airportsByICAO); err != nil {
		return nil, err
	}

	firs := vatspy.resolveFIRs(boundaries)
	return NewData(vatspy.airports, firs, vatspy.uirs, vatspy.countries), nil
}

// LoadCountries loads the geonames countryInfo dump, keyed by
// geoname id.
func LoadCountries(cfg *config.Config) (map[string]GeonamesCountry, error) {
	f, err := openCached(cfg.Fixed.CountriesURL, filepath.Join(cfg.Cache.Dir, "countryInfo.txt"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseGeonamesCountries(f)
}

// LoadShapes loads the simplified country outlines used for reverse
// geocoding.
func LoadShapes(cfg *config.Config) ([]GeonamesShape, error) {
	path, err := cachedLoader(cfg.Fixed.ShapesURL, filepath.Join(cfg.Cache.Dir, "shapes.zip"))
	if err != nil {
		return nil, err
	}
	return parseGeonamesShapes(path)
}
