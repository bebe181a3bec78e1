// Package config loads the server configuration from a YAML file and
// fills in defaults for anything the file leaves out.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type API struct {
	URL        string        `yaml:"url"`
	PollPeriod time.Duration `yaml:"poll_period"`
}

type Web struct {
	Addr string `yaml:"addr"`
}

type Track struct {
	Enabled bool `yaml:"enabled"`
	// PostgresDSN selects the postgres backend; empty means the
	// local sqlite file is used instead.
	PostgresDSN string        `yaml:"postgres_dsn"`
	SQLitePath  string        `yaml:"sqlite_path"`
	Retention   time.Duration `yaml:"retention"`
}

type Weather struct {
	URL      string        `yaml:"url"`
	MetarTTL time.Duration `yaml:"metar_ttl"`
}

type Fixed struct {
	VatspyDataURL string `yaml:"vatspy_data_url"`
	BoundariesURL string `yaml:"boundaries_url"`
	CountriesURL  string `yaml:"countries_url"`
	ShapesURL     string `yaml:"shapes_url"`
	RunwaysURL    string `yaml:"runways_url"`
}

type Cache struct {
	Dir string `yaml:"dir"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	API     API     `yaml:"api"`
	Web     Web     `yaml:"web"`
	Track   Track   `yaml:"track"`
	Weather Weather `yaml:"weather"`
	Fixed   Fixed   `yaml:"fixed"`
	Cache   Cache   `yaml:"cache"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: API{
			URL:        "https://data.vatsim.net/v3/vatsim-data.json",
			PollPeriod: 15 * time.Second,
		},
		Web: Web{Addr: ":8440"},
		Track: Track{
			Enabled:    true,
			SQLitePath: "camden-tracks.db",
			Retention:  12 * time.Hour,
		},
		Weather: Weather{
			URL:      "https://aviationweather.gov/cgi-bin/data/metar.php",
			MetarTTL: 30 * time.Minute,
		},
		Fixed: Fixed{
			VatspyDataURL: "https://raw.githubusercontent.com/vatsimnetwork/vatspy-data-project/master/VATSpy.dat",
			BoundariesURL: "https://raw.githubusercontent.com/vatsimnetwork/vatspy-data-project/master/Boundaries.geojson",
			CountriesURL:  "https://download.geonames.org/export/dump/countryInfo.txt",
			ShapesURL:     "https://download.geonames.org/export/dump/shapes_simplified_low.json.zip",
			RunwaysURL:    "https://davidmegginson.github.io/ourairports-data/runways.csv",
		},
		Cache: Cache{Dir: "cache"},
		Log:   Log{Level: "info"},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
