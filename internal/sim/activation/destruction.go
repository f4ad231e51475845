package activation

import (
	"fmt"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

type DestroyOutcome int

const (
	OutcomeNone DestroyOutcome = iota
	OutcomeExploded
	OutcomeRemoved
)

func (o DestroyOutcome) String() string {
	switch o {
	case OutcomeExploded:
		return "exploded"
	case OutcomeRemoved:
		return "removed"
	default:
		return "none"
	}
}

// AddDestroyedSpacecraft retires a destroyed ship. A trigger roll (tiered by
// size, or certain when forced or when a reserve ship replaces it) decides
// whether the ship may explode; triggered ships explode with the configured
// probability and are removed silently otherwise. The ship always leaves the
// active lists and the world.
func (s *Sector) AddDestroyedSpacecraft(a *Spacecraft, force bool) DestroyOutcome {
	if a == nil || a.removed || s.byID[a.ID] != a {
		return OutcomeNone
	}
	tune := s.w.Tuning().Destroy
	replacement := s.reserveReplacement(a)

	p := tune.SmallProbability
	switch {
	case a.Sim.IsDrone():
		p = tune.DroneProbability
	case a.Sim.IsLarge():
		p = tune.LargeProbability
	}
	triggered := force || replacement != nil || s.rnd.Float64() < p

	outcome := OutcomeRemoved
	if triggered && s.rnd.Float64() < tune.ExplosionProbability {
		outcome = OutcomeExploded
	}
	loc := a.Location
	s.audit("SPACECRAFT_DESTROYED", a, outcome.String(), map[string]any{
		"triggered": triggered,
		"forced":    force,
	})
	s.log.Info().
		Str("sector", s.sectorID()).
		Str("ship", a.ID).
		Str("outcome", outcome.String()).
		Bool("triggered", triggered).
		Msg("spacecraft destroyed")

	if outcome == OutcomeExploded {
		s.scene.Explode(a.ID)
	} else {
		s.scene.SafeDestroy(a.ID)
	}
	s.detach(a)
	s.w.RemoveSpacecraft(a.ID)

	if replacement != nil && s.state == StateActive {
		replacement.Reserve = false
		replacement.Location = loc
		replacement.SpawnMode = world.SpawnSpawn
		s.AddReinforcingShip(replacement)
	}
	return outcome
}

// reserveReplacement finds a reserve ship of the same company and class
// parked in this sector.
func (s *Sector) reserveReplacement(a *Spacecraft) *world.Spacecraft {
	if a.IsStation() || s.parent == nil {
		return nil
	}
	for _, sim := range s.parent.Spacecraft() {
		if sim.Reserve && !sim.IsActive() && sim.ID != a.ID &&
			sim.CompanyID == a.CompanyID() && sim.DescID == a.Sim.DescID {
			return sim
		}
	}
	return nil
}

// RemoveSpacecraft takes an instance out of the active sector without
// touching its simulated record, e.g. when its fleet departs.
func (s *Sector) RemoveSpacecraft(a *Spacecraft) {
	if a == nil || a.removed || s.byID[a.ID] != a {
		return
	}
	a.CancelAutopilot()
	s.scene.SafeDestroy(a.ID)
	s.detach(a)
}

// detach removes the instance from every list and cache, and drops the bombs
// it released.
func (s *Sector) detach(a *Spacecraft) {
	s.spacecraft = removeInstance(s.spacecraft, a)
	s.ships = removeInstance(s.ships, a)
	s.stations = removeInstance(s.stations, a)
	delete(s.byID, a.ID)
	s.invalidateCompany(a.CompanyID())
	if a.IsStation() {
		s.repartitionValid = false
	}

	kept := s.bombs[:0]
	for _, b := range s.bombs {
		if b.Parent == a {
			s.scene.SafeDestroy(b.ID)
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(s.bombs); i++ {
		s.bombs[i] = nil
	}
	s.bombs = kept

	if a.Parent != nil {
		a.Parent.Children = removeInstance(a.Parent.Children, a)
	}
	for _, c := range a.Children {
		c.Parent = nil
	}
	for _, o := range s.spacecraft {
		if o.DockedTo == a {
			o.DockedTo = nil
			o.Sim.DockedTo = ""
		}
	}
	s.release(a)
}

func (s *Sector) release(a *Spacecraft) {
	if ref := a.Sim.Active(); ref != nil && ref.SpacecraftID() == a.ID {
		a.Sim.SetActive(nil)
	}
	a.Parent = nil
	a.Children = nil
	a.DockedTo = nil
	a.removed = true
}

// AddReinforcingShip materializes a simulated ship of this sector while the
// sector is active, e.g. a battle reinforcement or a carrier launch.
func (s *Sector) AddReinforcingShip(sim *world.Spacecraft) *Spacecraft {
	if s.state != StateActive || sim == nil {
		return nil
	}
	if sim.SectorID != s.parent.ID {
		s.log.Warn().
			Str("sector", s.parent.ID).
			Str("ship", sim.ID).
			Str("ship_sector", sim.SectorID).
			Msg("reinforcement from another sector refused")
		return nil
	}
	if a := s.byID[sim.ID]; a != nil {
		return a
	}
	a := s.instantiate(sim)
	s.attach(a)
	for _, c := range s.spacecraft {
		if c.Parent == nil && c.Sim.ParentID == a.ID {
			c.Parent = a
			a.Children = append(a.Children, c)
		}
	}
	if !a.positioned {
		s.place(a)
	}
	if a.IsStation() {
		s.repartitionValid = false
	}
	s.audit("REINFORCE", a, sim.SpawnMode.String(), nil)
	return a
}

// AddShell registers a transient projectile fired by owner.
func (s *Sector) AddShell(owner *Spacecraft, loc, vel mathx.Vec3, ttl float64) *Shell {
	if s.state != StateActive || ttl <= 0 {
		return nil
	}
	sh := s.pools.shells.Get()
	s.nextShell++
	sh.ID = fmt.Sprintf("shell-%d", s.nextShell)
	if owner != nil {
		sh.OwnerID = owner.ID
	}
	sh.Location = loc
	sh.Velocity = vel
	sh.TTL = ttl
	s.shells = append(s.shells, sh)
	s.scene.Spawn(sh.ID, KindShell, loc, 0)
	s.scene.SetVelocity(sh.ID, vel)
	return sh
}

func removeInstance[T any](list []*T, v *T) []*T {
	for i, x := range list {
		if x == v {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
