package world

import (
	"fmt"
	"math"

	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/mathx"
)

// SpawnMode tells the activation engine how to place a ship that has no
// valid location in its sector yet.
type SpawnMode int

const (
	SpawnSafe SpawnMode = iota
	SpawnSpawn
	SpawnTravel
	SpawnExit
	SpawnInternalDocked
)

var spawnModeNames = [...]string{"safe", "spawn", "travel", "exit", "internal_docked"}

func (m SpawnMode) String() string {
	if m < 0 || int(m) >= len(spawnModeNames) {
		return fmt.Sprintf("spawn_mode(%d)", int(m))
	}
	return spawnModeNames[m]
}

func ParseSpawnMode(s string) (SpawnMode, error) {
	if s == "" {
		return SpawnSafe, nil
	}
	for i, n := range spawnModeNames {
		if n == s {
			return SpawnMode(i), nil
		}
	}
	return SpawnSafe, fmt.Errorf("unknown spawn mode %q", s)
}

// ActiveRef is implemented by the active instance of a spacecraft while its
// sector is loaded.
type ActiveRef interface {
	SpacecraftID() string
}

// Spacecraft is the persistent, lightweight record of a ship or station.
type Spacecraft struct {
	ID        string
	DescID    string
	Desc      catalogs.SpacecraftDef
	CompanyID string
	SectorID  string

	Location mathx.Vec3
	Velocity mathx.Vec3
	Rotation mathx.Vec3

	SpawnMode SpawnMode

	// Damage and AmmoSpent are ratios in [0,1].
	Damage    float64
	AmmoSpent float64

	Trading     bool
	Intercepted bool
	Stranded    bool
	Reserve     bool
	Destroyed   bool

	DockedTo       string
	ParentID       string
	ChildIDs       []string
	InternalDocked bool

	Cargo CargoBay

	FleetID string

	active ActiveRef
	w      *World
}

func (s *Spacecraft) IsStation() bool { return s.Desc.Station }
func (s *Spacecraft) IsDrone() bool   { return s.Desc.Drone }
func (s *Spacecraft) IsLarge() bool   { return s.Desc.IsLarge() }

// IsMilitary reports whether the ship carries weapons. Drones never count.
func (s *Spacecraft) IsMilitary() bool { return !s.Desc.Drone && s.Desc.IsMilitary() }

func (s *Spacecraft) EngineAcceleration() float64 { return s.Desc.EngineAcceleration }

func (s *Spacecraft) Size() float64 { return s.Desc.Radius }

// CanTravel is false while the ship is trading, intercepted or stranded.
func (s *Spacecraft) CanTravel() bool {
	return !s.Trading && !s.Intercepted && !s.Stranded
}

// IsPlayerShip reports whether this is the ship the human is flying.
func (s *Spacecraft) IsPlayerShip() bool {
	return s.w != nil && s.w.player.ShipID != "" && s.w.player.ShipID == s.ID
}

func (s *Spacecraft) Company() *Company {
	if s.w == nil {
		return nil
	}
	return s.w.companies[s.CompanyID]
}

func (s *Spacecraft) Fleet() *Fleet {
	if s.w == nil || s.FleetID == "" {
		return nil
	}
	return s.w.fleets[s.FleetID]
}

func (s *Spacecraft) Sector() *Sector {
	if s.w == nil {
		return nil
	}
	return s.w.sectors[s.SectorID]
}

func (s *Spacecraft) Parent() *Spacecraft {
	if s.w == nil || s.ParentID == "" {
		return nil
	}
	return s.w.spacecraft[s.ParentID]
}

func (s *Spacecraft) Children() []*Spacecraft {
	if s.w == nil {
		return nil
	}
	out := make([]*Spacecraft, 0, len(s.ChildIDs))
	for _, id := range s.ChildIDs {
		if c := s.w.spacecraft[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// SetActive links the active instance. Passing nil clears it on deactivation.
func (s *Spacecraft) SetActive(a ActiveRef) { s.active = a }
func (s *Spacecraft) Active() ActiveRef     { return s.active }
func (s *Spacecraft) IsActive() bool        { return s.active != nil }

// CombatPoints returns the class combat value; current scales it by remaining hull.
func (s *Spacecraft) CombatPoints(current bool) int {
	p := s.Desc.CombatPoints
	if s.Desc.Station {
		return 0
	}
	if !current {
		return p
	}
	return int(math.Floor(float64(p) * (1 - mathx.Clamp(s.Damage, 0, 1))))
}

// RepairDays is the number of days needed to bring the hull back to full.
func (s *Spacecraft) RepairDays() int {
	if s.Damage <= 0 {
		return 0
	}
	return int(math.Ceil(mathx.Clamp(s.Damage, 0, 1) * float64(s.Desc.RepairDays)))
}

// RefillDays is the number of days needed to restock spent ammunition.
func (s *Spacecraft) RefillDays() int {
	if s.AmmoSpent <= 0 || !s.Desc.IsMilitary() {
		return 0
	}
	return int(math.Ceil(mathx.Clamp(s.AmmoSpent, 0, 1) * float64(s.Desc.RefillDays)))
}
