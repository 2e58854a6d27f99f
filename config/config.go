// config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type CatalogConfig struct {
	VFRChartsURL string `yaml:"vfr_charts_url"`
	IFRChartsURL string `yaml:"ifr_charts_url"`
}

type PathsConfig struct {
	DownloadDir  string `yaml:"download_dir"`
	MetadataFile string `yaml:"metadata_file"`
	SummaryFile  string `yaml:"summary_file"`
}

type HTTPConfig struct {
	ListingTimeoutStr  string `yaml:"listing_timeout"`
	DownloadTimeoutStr string `yaml:"download_timeout"`
	RetryBackoffStr    string `yaml:"retry_backoff"`
	ListingTimeout     time.Duration // Parsed duration
	DownloadTimeout    time.Duration // Parsed duration
	RetryBackoff       time.Duration // Parsed duration
}

type ConversionConfig struct {
	Workers          int    `yaml:"workers"`
	GdalInfoCmd      string `yaml:"gdalinfo_cmd"`
	GdalTranslateCmd string `yaml:"gdal_translate_cmd"`
	Gdal2TilesCmd    string `yaml:"gdal2tiles_cmd"`
}

type PublishConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	UseSSL          bool   `yaml:"use_ssl"`
	RetryBackoffStr string `yaml:"retry_backoff"`
	RetryBackoff    time.Duration // Parsed duration
}

type Config struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Paths      PathsConfig      `yaml:"paths"`
	HTTP       HTTPConfig       `yaml:"http"`
	Conversion ConversionConfig `yaml:"conversion"`
	Publish    PublishConfig    `yaml:"publish"`
}

var AppConfig Config

// LoadConfig reads configuration from the given YAML file. A .env file in
// the working directory, when present, is loaded first so that object
// store credentials (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY) reach the
// client through the environment.
func LoadConfig(configPath string) error {
	// Best effort: in CI the credentials come from secrets instead.
	_ = godotenv.Load()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(file, &AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaults(&AppConfig); err != nil {
		return err
	}

	// Create the download and metadata directories up front so the first
	// run does not fail halfway through a cycle.
	if err := os.MkdirAll(AppConfig.Paths.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(AppConfig.Paths.MetadataFile), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Catalog.VFRChartsURL == "" {
		cfg.Catalog.VFRChartsURL = "https://www.faa.gov/air_traffic/flight_info/aeronav/digital_products/vfr/"
	}
	if cfg.Catalog.IFRChartsURL == "" {
		cfg.Catalog.IFRChartsURL = "https://www.faa.gov/air_traffic/flight_info/aeronav/digital_products/ifr/"
	}
	if cfg.Paths.DownloadDir == "" {
		cfg.Paths.DownloadDir = "downloads"
	}
	if cfg.Paths.MetadataFile == "" {
		cfg.Paths.MetadataFile = filepath.Join("metadata", "faa_chart_log.json")
	}
	if cfg.Paths.SummaryFile == "" {
		cfg.Paths.SummaryFile = "run_summary.csv"
	}

	var err error
	cfg.HTTP.ListingTimeout, err = parseDurationOr(cfg.HTTP.ListingTimeoutStr, 20*time.Second)
	if err != nil {
		return fmt.Errorf("failed to parse listing_timeout: %w", err)
	}
	cfg.HTTP.DownloadTimeout, err = parseDurationOr(cfg.HTTP.DownloadTimeoutStr, 10*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to parse download_timeout: %w", err)
	}
	cfg.HTTP.RetryBackoff, err = parseDurationOr(cfg.HTTP.RetryBackoffStr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to parse http retry_backoff: %w", err)
	}
	cfg.Publish.RetryBackoff, err = parseDurationOr(cfg.Publish.RetryBackoffStr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to parse retry_backoff: %w", err)
	}

	if cfg.Conversion.Workers <= 0 {
		cfg.Conversion.Workers = 2
	}
	if cfg.Conversion.GdalInfoCmd == "" {
		cfg.Conversion.GdalInfoCmd = "gdalinfo"
	}
	if cfg.Conversion.GdalTranslateCmd == "" {
		cfg.Conversion.GdalTranslateCmd = "gdal_translate"
	}
	if cfg.Conversion.Gdal2TilesCmd == "" {
		cfg.Conversion.Gdal2TilesCmd = "gdal2tiles.py"
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
