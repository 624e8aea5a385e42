package properties

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/raster"
	"github.com/forest-guardian/landcover-cli/internal/sentinel"
	"github.com/spf13/viper"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

type Color struct {
	R, G, B uint8
}

// ColorMap colours class maps, keyed by class name.
var ColorMap = map[string]Color{
	"water":      {30, 110, 230},
	"vegetation": {40, 160, 60},
	"urban":      {150, 150, 150},
	"unknown":    {255, 0, 0},
}

const (
	ClassifierCentroid = "centroid"
	ClassifierGRPC     = "grpc"
)

// Config is the run configuration. Values come, by priority, from flags,
// S2_ prefixed environment variables, the JSON config file and defaults.
type Config struct {
	SafeFolder         string        `mapstructure:"safe_folder"`
	GeoJSONPath        string        `mapstructure:"geojson_path"`
	TargetResolution   int           `mapstructure:"target_resolution"`
	SelectedBands      []string      `mapstructure:"selected_bands"`
	Variant            string        `mapstructure:"variant"`
	PositionalFallback bool          `mapstructure:"positional_fallback"`
	Scratch            string        `mapstructure:"scratch"`
	OutputDir          string        `mapstructure:"output_dir"`
	Compress           string        `mapstructure:"compress"`
	Classifier         string        `mapstructure:"classifier"`
	ClassifierAddr     string        `mapstructure:"classifier_addr"`
	ClassifierTimeout  time.Duration `mapstructure:"classifier_timeout"`
	Workers            int           `mapstructure:"workers"`

	// Parsed by Validate.
	Resolution  sentinel.Resolution `mapstructure:"-"`
	Bands       []sentinel.Band     `mapstructure:"-"`
	Mode        sentinel.Variant    `mapstructure:"-"`
	ScratchMode raster.ScratchMode  `mapstructure:"-"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("safe_folder", "")
	v.SetDefault("geojson_path", "")
	v.SetDefault("target_resolution", 10)
	v.SetDefault("selected_bands", []string{})
	v.SetDefault("variant", "resample")
	v.SetDefault("positional_fallback", false)
	v.SetDefault("scratch", string(raster.ScratchMemory))
	v.SetDefault("output_dir", "output")
	v.SetDefault("compress", "LZW")
	v.SetDefault("classifier", ClassifierCentroid)
	v.SetDefault("classifier_addr", "localhost:50051")
	v.SetDefault("classifier_timeout", 15*time.Minute)
	v.SetDefault("workers", 2)
}

// Load reads configFile (a missing file is ignored when optional) and the
// environment into a validated Config.
func Load(v *viper.Viper, configFile string, optional bool) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("S2")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !(optional && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist))) {
				return nil, fmt.Errorf("%w: read config %s: %v", errkind.ErrConfig, configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", errkind.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var err error
	if c.Resolution, err = sentinel.ParseResolution(c.TargetResolution); err != nil {
		return err
	}
	if c.Bands, err = sentinel.ParseBands(c.SelectedBands); err != nil {
		return err
	}
	if c.Mode, err = sentinel.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.ScratchMode, err = raster.ParseScratchMode(c.Scratch); err != nil {
		return err
	}
	switch c.Classifier {
	case ClassifierCentroid, ClassifierGRPC:
	default:
		return fmt.Errorf("%w: unknown classifier %q, expected %s or %s", errkind.ErrConfig, c.Classifier, ClassifierCentroid, ClassifierGRPC)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", errkind.ErrConfig, c.Workers)
	}
	return nil
}

// OutputPath joins name to the output directory. A relative output directory
// is taken from ROOT_PATH when set.
func (c *Config) OutputPath(name string) string {
	dir := c.OutputDir
	if !filepath.IsAbs(dir) && RootPath() != "" {
		dir = filepath.Join(RootPath(), dir)
	}
	return filepath.Join(dir, name)
}
