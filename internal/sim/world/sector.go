package world

import (
	"driftline.space/internal/sim/mathx"
)

type Sphere struct {
	Center mathx.Vec3
	Radius float64
}

func (s Sphere) Contains(p mathx.Vec3) bool { return p.Dist(s.Center) < s.Radius }

type AsteroidRecord struct {
	ID       string
	Location mathx.Vec3
	Rotation mathx.Vec3
	Scale    float64
}

type MeteoriteRecord struct {
	ID       string
	Location mathx.Vec3
	Velocity mathx.Vec3
	Radius   float64
	TargetID string
	Damage   float64
	Exploded bool
}

// BombRecord is a bomb in flight, still attached to the weapon slot that released it.
type BombRecord struct {
	ID           string
	ParentShipID string
	WeaponSlot   string
	Location     mathx.Vec3
	Velocity     mathx.Vec3
	Armed        bool
}

// Sector is the simulated, always-present record of a region of space.
// A travel sector is a synthetic sector that hosts fleets while en route.
type Sector struct {
	ID          string
	Name        string
	LimitRadius float64
	Exclusions  []Sphere

	Asteroids  []AsteroidRecord
	Meteorites []MeteoriteRecord
	Bombs      []BombRecord

	// LocalTime is the sector clock in seconds, advanced only while active.
	LocalTime float64

	Travel bool

	spacecraftIDs []string
	fleetIDs      []string

	w *World
}

func (s *Sector) SpacecraftIDs() []string { return append([]string(nil), s.spacecraftIDs...) }

// Spacecraft resolves every spacecraft located in the sector, in arrival order.
func (s *Sector) Spacecraft() []*Spacecraft {
	out := make([]*Spacecraft, 0, len(s.spacecraftIDs))
	for _, id := range s.spacecraftIDs {
		if sc := s.w.spacecraft[id]; sc != nil {
			out = append(out, sc)
		}
	}
	return out
}

func (s *Sector) Stations() []*Spacecraft {
	var out []*Spacecraft
	for _, sc := range s.Spacecraft() {
		if sc.IsStation() {
			out = append(out, sc)
		}
	}
	return out
}

func (s *Sector) Fleets() []*Fleet {
	out := make([]*Fleet, 0, len(s.fleetIDs))
	for _, id := range s.fleetIDs {
		if f := s.w.fleets[id]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

// CompaniesPresent lists company ids owning at least one spacecraft here, in first-seen order.
func (s *Sector) CompaniesPresent() []string {
	seen := map[string]bool{}
	var out []string
	for _, sc := range s.Spacecraft() {
		if !seen[sc.CompanyID] {
			seen[sc.CompanyID] = true
			out = append(out, sc.CompanyID)
		}
	}
	return out
}

// InBattle reports whether the company has ships here while a hostile company
// has armed ships here too.
func (s *Sector) InBattle(companyID string) bool {
	c := s.w.companies[companyID]
	if c == nil {
		return false
	}
	present, threatened := false, false
	for _, sc := range s.Spacecraft() {
		if sc.IsStation() || sc.InternalDocked {
			continue
		}
		if sc.CompanyID == companyID {
			present = true
		} else if c.IsAtWar(sc.CompanyID) && sc.IsMilitary() && sc.Damage < 1 {
			threatened = true
		}
		if present && threatened {
			return true
		}
	}
	return false
}

// InExclusion reports whether p lies inside one of the sector's exclusion volumes.
func (s *Sector) InExclusion(p mathx.Vec3) bool {
	for _, e := range s.Exclusions {
		if e.Contains(p) {
			return true
		}
	}
	return false
}

// DisbandFleet is the notification a fleet sends when it stops existing.
func (s *Sector) DisbandFleet(f *Fleet) {
	s.fleetIDs = removeID(s.fleetIDs, f.ID)
}

func (s *Sector) addSpacecraft(sc *Spacecraft) {
	if indexOf(s.spacecraftIDs, sc.ID) < 0 {
		s.spacecraftIDs = append(s.spacecraftIDs, sc.ID)
	}
}

func (s *Sector) removeSpacecraft(sc *Spacecraft) {
	s.spacecraftIDs = removeID(s.spacecraftIDs, sc.ID)
}

func (s *Sector) addFleet(f *Fleet) {
	if indexOf(s.fleetIDs, f.ID) < 0 {
		s.fleetIDs = append(s.fleetIDs, f.ID)
	}
}

// RemoveBomb drops a bomb record after it detonated or expired.
func (s *Sector) RemoveBomb(id string) {
	for i, b := range s.Bombs {
		if b.ID == id {
			s.Bombs = append(s.Bombs[:i], s.Bombs[i+1:]...)
			return
		}
	}
}

// moveSpacecraft relocates a spacecraft record to another sector.
func (w *World) moveSpacecraft(sc *Spacecraft, to *Sector) {
	if from := w.sectors[sc.SectorID]; from != nil {
		from.removeSpacecraft(sc)
	}
	sc.SectorID = to.ID
	to.addSpacecraft(sc)
}
