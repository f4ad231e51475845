package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`
	DayTicks   int `yaml:"day_ticks"`

	Fleet     Fleet     `yaml:"fleet"`
	Placement Placement `yaml:"placement"`
	Spawn     Spawn     `yaml:"spawn"`
	Destroy   Destroy   `yaml:"destroy"`
	Travel    Travel    `yaml:"travel"`

	SnapshotEveryDays int `yaml:"snapshot_every_days"`
}

type Fleet struct {
	MaxShips             int     `yaml:"max_ships"`
	InterceptProbability float64 `yaml:"intercept_probability"`
}

type Placement struct {
	// Increment is the first search radius step in meters.
	Increment float64 `yaml:"increment"`
	// GrowthLimit bounds the search radius at GrowthLimit*Increment and caps the iteration count.
	GrowthLimit int `yaml:"growth_limit"`
}

type Spawn struct {
	TravelDistance      float64 `yaml:"travel_distance"`
	BattleMargin        float64 `yaml:"battle_margin"`
	BattleEntrySpeed    float64 `yaml:"battle_entry_speed"`
	ExitLimitRatio      float64 `yaml:"exit_limit_ratio"`
	ExitVelocityDamping float64 `yaml:"exit_velocity_damping"`
	DockedVelocityRatio float64 `yaml:"docked_velocity_ratio"`
	DockedSpacing       float64 `yaml:"docked_spacing"`
	MinSectorRadius     float64 `yaml:"min_sector_radius"`
}

type Destroy struct {
	LargeProbability     float64 `yaml:"large_probability"`
	SmallProbability     float64 `yaml:"small_probability"`
	DroneProbability     float64 `yaml:"drone_probability"`
	ExplosionProbability float64 `yaml:"explosion_probability"`
}

type Travel struct {
	BaseDays        int     `yaml:"base_days"`
	LargeShipDays   int     `yaml:"large_ship_days"`
	SlowEngineBelow float64 `yaml:"slow_engine_below"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 20,
		DayTicks:   1200,
		Fleet: Fleet{
			MaxShips:             20,
			InterceptProbability: 0.1,
		},
		Placement: Placement{
			Increment:   100,
			GrowthLimit: 1000,
		},
		Spawn: Spawn{
			TravelDistance:      1000,
			BattleMargin:        5000,
			BattleEntrySpeed:    200,
			ExitLimitRatio:      0.85,
			ExitVelocityDamping: 0.5,
			DockedVelocityRatio: 0.5,
			DockedSpacing:       50,
			MinSectorRadius:     2000,
		},
		Destroy: Destroy{
			LargeProbability:     0.05,
			SmallProbability:     0.10,
			DroneProbability:     0.50,
			ExplosionProbability: 0.99,
		},
		Travel: Travel{
			BaseDays:        2,
			LargeShipDays:   1,
			SlowEngineBelow: 3,
		},
		SnapshotEveryDays: 1,
	}
}

// Load reads tuning.yaml on top of Defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.DayTicks <= 0 {
		return fmt.Errorf("tick_rate_hz and day_ticks must be > 0")
	}
	if t.Fleet.MaxShips <= 0 {
		return fmt.Errorf("fleet.max_ships must be > 0")
	}
	if t.Placement.Increment <= 0 || t.Placement.GrowthLimit <= 0 {
		return fmt.Errorf("placement increment and growth_limit must be > 0")
	}
	if t.Spawn.ExitLimitRatio <= 0 || t.Spawn.ExitLimitRatio > 1 {
		return fmt.Errorf("spawn.exit_limit_ratio must be in (0,1]")
	}
	for name, p := range map[string]float64{
		"fleet.intercept_probability":   t.Fleet.InterceptProbability,
		"destroy.large_probability":     t.Destroy.LargeProbability,
		"destroy.small_probability":     t.Destroy.SmallProbability,
		"destroy.drone_probability":     t.Destroy.DroneProbability,
		"destroy.explosion_probability": t.Destroy.ExplosionProbability,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0,1]", name)
		}
	}
	return nil
}
