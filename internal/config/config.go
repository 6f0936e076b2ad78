package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig     `yaml:"store" mapstructure:"store"`
	Log         LogConfig       `yaml:"log" mapstructure:"log"`
	Inputs      InputsConfig    `yaml:"inputs" mapstructure:"inputs"`
	Scenarios   []ScenarioInput `yaml:"scenarios" mapstructure:"scenarios"`
	Combine     CombineConfig   `yaml:"combine" mapstructure:"combine"`
	Selection   SelectionConfig `yaml:"selection" mapstructure:"selection"`
	Output      OutputConfig    `yaml:"output" mapstructure:"output"`
	Concurrency int             `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InputsConfig names the shared input files of an analysis.
type InputsConfig struct {
	Units             string `yaml:"units" mapstructure:"units"`
	Areas             string `yaml:"areas" mapstructure:"areas"`
	Regions           string `yaml:"regions" mapstructure:"regions"`
	UnitTimes         string `yaml:"unit_times" mapstructure:"unit_times"`
	AreaTimes         string `yaml:"area_times" mapstructure:"area_times"`
	AreaRegions       string `yaml:"area_regions" mapstructure:"area_regions"`
	Boundaries        string `yaml:"boundaries" mapstructure:"boundaries"`
	BoundaryFormat    string `yaml:"boundary_format" mapstructure:"boundary_format"`
	BoundaryCodeField string `yaml:"boundary_code_field" mapstructure:"boundary_code_field"`
	BoundaryNameField string `yaml:"boundary_name_field" mapstructure:"boundary_name_field"`
	BoundaryCharset   string `yaml:"boundary_charset" mapstructure:"boundary_charset"`
	Overrides         string `yaml:"overrides" mapstructure:"overrides"`
}

// ScenarioInput names the per-scenario unit and area tables.
type ScenarioInput struct {
	Name  string `yaml:"name" mapstructure:"name"`
	Units string `yaml:"units" mapstructure:"units"`
	Areas string `yaml:"areas" mapstructure:"areas"`
}

// CombineConfig controls how scenario tables are combined and diffed.
type CombineConfig struct {
	Depth          int      `yaml:"depth" mapstructure:"depth"`
	Shared         []string `yaml:"shared" mapstructure:"shared"`
	Flags          []string `yaml:"flags" mapstructure:"flags"`
	AddUse         bool     `yaml:"add_use" mapstructure:"add_use"`
	DiffProperties []string `yaml:"diff_properties" mapstructure:"diff_properties"`
}

// SelectionConfig restricts the analysis to part of the region set.
type SelectionConfig struct {
	ExcludeRegionPrefixes []string `yaml:"exclude_region_prefixes" mapstructure:"exclude_region_prefixes"`
}

// OutputConfig configures result export.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATCHMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "catchment.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("inputs.boundary_format", "geojson")
	v.SetDefault("inputs.boundary_code_field", "code")
	v.SetDefault("inputs.boundary_name_field", "name")
	v.SetDefault("combine.depth", 3)
	v.SetDefault("combine.flags", []string{"selected", "use"})
	v.SetDefault("combine.diff_properties", []string{"time_ivt", "time_mt"})
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.formats", []string{"csv"})
	v.SetDefault("concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(msg string) { problems = append(problems, msg) }

	needStore := false
	switch mode {
	case "assign":
		c.requireInputs(add, "units", "areas", "unit_times", "area_times")
	case "combine":
		c.requireScenarios(add)
	case "colour":
		c.requireBoundaries(add)
	case "analyze":
		c.requireInputs(add, "units", "areas", "unit_times", "area_times")
		c.requireScenarios(add)
		if c.Inputs.Boundaries != "" {
			c.requireBoundaries(add)
		}
		needStore = true
	case "runs":
		needStore = true
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needStore {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			add("store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required")
		}
	}
	if mode == "combine" || mode == "analyze" {
		if c.Combine.Depth != 2 && c.Combine.Depth != 3 {
			add("combine.depth must be 2 or 3")
		}
		for _, f := range c.Output.Formats {
			switch f {
			case "csv", "json", "xlsx":
			default:
				add("output.formats: unknown format " + f)
			}
		}
	}
	if c.Concurrency < 1 || c.Concurrency > 64 {
		add("concurrency must be between 1 and 64")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) requireInputs(add func(string), names ...string) {
	files := map[string]string{
		"units":      c.Inputs.Units,
		"areas":      c.Inputs.Areas,
		"unit_times": c.Inputs.UnitTimes,
		"area_times": c.Inputs.AreaTimes,
	}
	for _, n := range names {
		if files[n] == "" {
			add("inputs." + n + " is required")
		}
	}
}

func (c *Config) requireScenarios(add func(string)) {
	if len(c.Scenarios) == 0 {
		add("at least one scenario is required")
	}
	seen := make(map[string]bool)
	for i, s := range c.Scenarios {
		switch {
		case s.Name == "":
			add(fmt.Sprintf("scenarios[%d].name is required", i))
		case seen[s.Name]:
			add("scenarios: duplicate name " + s.Name)
		}
		seen[s.Name] = true
		if s.Units == "" && s.Areas == "" {
			add(fmt.Sprintf("scenarios[%d] needs units or areas", i))
		}
	}
}

func (c *Config) requireBoundaries(add func(string)) {
	if c.Inputs.Boundaries == "" {
		add("inputs.boundaries is required")
	}
	switch c.Inputs.BoundaryFormat {
	case "geojson", "shapefile":
	default:
		add("inputs.boundary_format must be geojson or shapefile")
	}
	if c.Inputs.BoundaryCodeField == "" {
		add("inputs.boundary_code_field is required")
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
