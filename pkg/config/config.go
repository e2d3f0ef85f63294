package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
	"github.com/XiaoConstantine/evoselect/pkg/selection"
)

// Config is the complete YAML configuration surface for a selection run.
type Config struct {
	// Objectives declares the objective space: name -> direction and weight.
	Objectives map[string]ObjectiveConfig `yaml:"objectives" validate:"required,min=1,dive"`

	// Frontier bounds the live non-dominated set and the archive.
	Frontier FrontierConfig `yaml:"frontier,omitempty"`

	// Tournament configures parent selection.
	Tournament TournamentConfig `yaml:"tournament,omitempty"`

	// Elite configures elite preservation.
	Elite EliteConfig `yaml:"elite,omitempty"`

	// Sharing configures fitness sharing.
	Sharing SharingConfig `yaml:"sharing,omitempty"`

	// Hypervolume configures the reference point.
	Hypervolume HypervolumeConfig `yaml:"hypervolume,omitempty"`

	// Epsilon enables epsilon-dominance per objective for noisy evaluations.
	Epsilon map[string]float64 `yaml:"epsilon,omitempty"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Seed drives every stochastic operator; runs with the same seed and
	// input are fully reproducible.
	Seed int64 `yaml:"seed,omitempty"`
}

// ObjectiveConfig declares one objective.
type ObjectiveConfig struct {
	Direction string  `yaml:"direction" validate:"required,oneof=maximize minimize"`
	Weight    float64 `yaml:"weight" validate:"gte=0"`
}

// FrontierConfig bounds the frontier and archive sizes.
type FrontierConfig struct {
	MaxSize        int `yaml:"max_size" validate:"omitempty,min=1"`
	ArchiveMaxSize int `yaml:"archive_max_size" validate:"omitempty,min=1"`
}

// TournamentConfig configures tournament selection.
type TournamentConfig struct {
	Size     int    `yaml:"size" validate:"omitempty,min=2"`
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=pareto diversity adaptive"`
}

// EliteConfig configures elite preservation. Count wins over Ratio when both
// are set.
type EliteConfig struct {
	Ratio               float64 `yaml:"ratio" validate:"gte=0,lte=1"`
	Count               int     `yaml:"count" validate:"min=0"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gte=0"`
}

// SharingConfig configures fitness sharing.
type SharingConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Alpha              float64 `yaml:"alpha" validate:"gte=0"`
	Strategy           string  `yaml:"strategy" validate:"omitempty,oneof=fixed population_based objective_range adaptive"`
	Radius             float64 `yaml:"radius" validate:"gte=0"`
	PopulationScale    float64 `yaml:"population_scale" validate:"gte=0"`
	RangeFraction      float64 `yaml:"range_fraction" validate:"gte=0,lte=1"`
	TargetDiversity    float64 `yaml:"target_diversity" validate:"gte=0,lte=1"`
	DiversityThreshold float64 `yaml:"diversity_threshold" validate:"gte=0,lte=1"`
}

// HypervolumeConfig configures the hypervolume reference point. An empty
// ReferencePoint selects the nadir automatically using Margin.
type HypervolumeConfig struct {
	ReferencePoint map[string]float64 `yaml:"reference_point,omitempty"`
	Margin         float64            `yaml:"margin" validate:"gte=0,lte=1"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the defaults applied underneath any loaded file.
// Objectives have no default; a usable config must declare at least one.
func DefaultConfig() *Config {
	return &Config{
		Frontier: FrontierConfig{
			MaxSize:        100,
			ArchiveMaxSize: 50,
		},
		Tournament: TournamentConfig{
			Size:     selection.DefaultTournamentSize,
			Strategy: string(selection.StrategyPareto),
		},
		Elite: EliteConfig{
			Ratio: selection.DefaultEliteRatio,
		},
		Sharing: SharingConfig{
			Alpha:           selection.DefaultSharingAlpha,
			Strategy:        string(selection.RadiusObjectiveRange),
			RangeFraction:   selection.DefaultRangeFraction,
			PopulationScale: selection.DefaultPopulationScale,
			TargetDiversity: selection.DefaultTargetDiversity,
		},
		Hypervolume: HypervolumeConfig{
			Margin: selection.DefaultReferenceMargin,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load parses YAML on top of the defaults and validates the result.
func Load(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfiguration, "failed to parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidConfiguration, "failed to read configuration file"),
			errors.Fields{"path": path})
	}
	return Load(data)
}

// Validate runs struct-tag validation followed by the semantic rules the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "configuration failed validation"),
				errors.Fields{"field": first.Namespace(), "constraint": first.Tag()})
		}
		return errors.Wrap(err, errors.InvalidConfiguration, "configuration failed validation")
	}
	return c.validateSemantics()
}

func (c *Config) validateSemantics() error {
	// The objective spec carries its own validation rules.
	if err := c.ObjectiveSpec().Validate(); err != nil {
		return err
	}

	for name := range c.Epsilon {
		if _, ok := c.Objectives[name]; !ok {
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "epsilon declared for an unknown objective"),
				errors.Fields{"objective": name})
		}
		if c.Epsilon[name] < 0 {
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "epsilon must be non-negative"),
				errors.Fields{"objective": name, "epsilon": c.Epsilon[name]})
		}
	}

	for name := range c.Hypervolume.ReferencePoint {
		if _, ok := c.Objectives[name]; !ok {
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "reference point declared for an unknown objective"),
				errors.Fields{"objective": name})
		}
	}
	if rp := c.Hypervolume.ReferencePoint; len(rp) > 0 && len(rp) != len(c.Objectives) {
		return errors.New(errors.InvalidConfiguration,
			"reference point must cover every objective or be omitted")
	}

	if c.Sharing.Enabled && c.Sharing.Strategy == string(selection.RadiusFixed) && c.Sharing.Radius <= 0 {
		return errors.New(errors.InvalidConfiguration, "fixed niche radius must be positive")
	}
	return nil
}

// ObjectiveSpec converts the declared objectives to the selection package's
// spec type.
func (c *Config) ObjectiveSpec() selection.ObjectiveSpec {
	spec := make(selection.ObjectiveSpec, len(c.Objectives))
	for name, o := range c.Objectives {
		spec[name] = selection.ObjectiveDef{
			Direction: selection.Direction(o.Direction),
			Weight:    o.Weight,
		}
	}
	return spec
}

// FrontierConfig converts to the selection package's frontier bounds.
func (c *Config) FrontierConfig() selection.FrontierConfig {
	return selection.FrontierConfig{
		MaxSize:        c.Frontier.MaxSize,
		ArchiveMaxSize: c.Frontier.ArchiveMaxSize,
	}
}

// TournamentConfig converts to the selection package's tournament settings,
// carrying the run seed.
func (c *Config) TournamentConfig() selection.TournamentConfig {
	return selection.TournamentConfig{
		Size:     c.Tournament.Size,
		Strategy: selection.TournamentStrategy(c.Tournament.Strategy),
		Seed:     c.Seed,
	}
}

// SharingConfig converts to the selection package's sharing settings.
func (c *Config) SharingConfig() selection.SharingConfig {
	return selection.SharingConfig{
		Alpha:              c.Sharing.Alpha,
		Strategy:           selection.NicheRadiusStrategy(c.Sharing.Strategy),
		Radius:             c.Sharing.Radius,
		PopulationC:        c.Sharing.PopulationScale,
		RangeFraction:      c.Sharing.RangeFraction,
		TargetDiversity:    c.Sharing.TargetDiversity,
		DiversityThreshold: c.Sharing.DiversityThreshold,
	}
}

// EliteCount resolves the absolute elite count for a population size. An
// explicit count wins; otherwise the ratio applies, rounded down with a
// floor of 1 for non-empty populations.
func (c *Config) EliteCount(populationSize int) int {
	if populationSize <= 0 {
		return 0
	}
	if c.Elite.Count > 0 {
		return c.Elite.Count
	}
	k := int(c.Elite.Ratio * float64(populationSize))
	if k < 1 {
		k = 1
	}
	return k
}

// LogSeverity maps the configured level to the logging package's severity.
func (c *Config) LogSeverity() logging.Severity {
	switch c.Logging.Level {
	case "debug":
		return logging.DEBUG
	case "warn":
		return logging.WARN
	case "error":
		return logging.ERROR
	case "fatal":
		return logging.FATAL
	default:
		return logging.INFO
	}
}
