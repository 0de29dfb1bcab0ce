package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings holds the tunable policy of the economic engine plus the
// ambient settings of the tools around it (in-memory representation).
type Settings struct {
	// Sector policy.
	WholesaleDiscounts            map[string]float64 `yaml:"wholesale_discounts" json:"wholesale_discounts"` // sector -> price multiplier for non-Electricity product inputs
	ElectricityProduct            string             `yaml:"electricity_product" json:"electricity_product"`
	InternalElectricityMultiplier float64            `yaml:"internal_electricity_multiplier" json:"internal_electricity_multiplier"`

	// Derived flow defaults.
	ElectricityConsumptionRate float64 `yaml:"electricity_consumption_rate" json:"electricity_consumption_rate"`
	ResourceConsumptionRate    float64 `yaml:"resource_consumption_rate" json:"resource_consumption_rate"`
	DefaultOutputRate          float64 `yaml:"default_output_rate" json:"default_output_rate"`

	// Capacity.
	DefaultBaseCapacity int     `yaml:"default_base_capacity" json:"default_base_capacity"`
	NearCapacityRatio   float64 `yaml:"near_capacity_ratio" json:"near_capacity_ratio"`

	TrendWindow     int `yaml:"trend_window" json:"trend_window"`
	ProjectionHours int `yaml:"projection_hours" json:"projection_hours"` // display only
	BatchWorkers    int `yaml:"batch_workers" json:"batch_workers"`

	Logging  LoggingSettings  `yaml:"logging" json:"logging"`
	Database DatabaseSettings `yaml:"database" json:"database"`
}

// LoggingSettings configures internal/logger.
type LoggingSettings struct {
	Level       string `yaml:"level" json:"level"` // debug, info, warn, error
	Development bool   `yaml:"development" json:"development"`
}

// DatabaseSettings configures the SQLite snapshot source.
type DatabaseSettings struct {
	Path string `yaml:"path" json:"path"`
}

// Default returns Settings with the stock game balance.
func Default() *Settings {
	return &Settings{
		WholesaleDiscounts: map[string]float64{
			"Defense": 0.8,
		},
		ElectricityProduct:            "Electricity",
		InternalElectricityMultiplier: 0.1,
		ElectricityConsumptionRate:    0.5,
		ResourceConsumptionRate:       0.5,
		DefaultOutputRate:             1.0,
		DefaultBaseCapacity:           15,
		NearCapacityRatio:             0.8,
		TrendWindow:                   4,
		ProjectionHours:               96,
		BatchWorkers:                  8,
		Logging: LoggingSettings{
			Level: "info",
		},
		Database: DatabaseSettings{
			Path: "corpecon.db",
		},
	}
}

// Load reads settings from a YAML file layered over Default. A missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read settings: %w", err)
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	}
	s.applyEnvOverrides()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnvOverrides() {
	if v := os.Getenv("CORPECON_DB_PATH"); v != "" {
		s.Database.Path = v
	}
	if v := os.Getenv("CORPECON_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := os.Getenv("CORPECON_TREND_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.TrendWindow = n
		}
	}
}

// Validate rejects settings the engine cannot work with.
func (s *Settings) Validate() error {
	var errs []error
	for sector, d := range s.WholesaleDiscounts {
		if d < 0 {
			errs = append(errs, fmt.Errorf("wholesale discount for %q is negative: %v", sector, d))
		}
	}
	if s.ElectricityProduct == "" {
		errs = append(errs, errors.New("electricity_product is empty"))
	}
	for name, v := range map[string]float64{
		"internal_electricity_multiplier": s.InternalElectricityMultiplier,
		"electricity_consumption_rate":    s.ElectricityConsumptionRate,
		"resource_consumption_rate":       s.ResourceConsumptionRate,
		"default_output_rate":             s.DefaultOutputRate,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s is negative: %v", name, v))
		}
	}
	if s.DefaultBaseCapacity < 0 {
		errs = append(errs, fmt.Errorf("default_base_capacity is negative: %d", s.DefaultBaseCapacity))
	}
	if s.NearCapacityRatio <= 0 || s.NearCapacityRatio > 1 {
		errs = append(errs, fmt.Errorf("near_capacity_ratio must be in (0, 1], got %v", s.NearCapacityRatio))
	}
	if s.TrendWindow <= 0 {
		errs = append(errs, fmt.Errorf("trend_window must be positive, got %d", s.TrendWindow))
	}
	if s.ProjectionHours <= 0 {
		errs = append(errs, fmt.Errorf("projection_hours must be positive, got %d", s.ProjectionHours))
	}
	if s.BatchWorkers <= 0 {
		errs = append(errs, fmt.Errorf("batch_workers must be positive, got %d", s.BatchWorkers))
	}
	return errors.Join(errs...)
}

// WholesaleDiscount returns the price multiplier applied to a sector's
// non-Electricity product inputs; 1.0 when the sector has no discount.
func (s *Settings) WholesaleDiscount(sector string) float64 {
	if d, ok := s.WholesaleDiscounts[sector]; ok {
		return d
	}
	return 1.0
}
